package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"pricewatch_api/internal/pricing/business/models"
	"pricewatch_api/internal/pricing/storage"
	"pricewatch_api/pkg/logger"
)

// Колонки файла выгрузки: РРЦ в третьем столбце (C), артикул в четвёртом (D),
// данные со второй строки.
const (
	rrcColumn  = 2
	nmIDColumn = 3
)

// Service принимает xlsx/csv и заводит строки с нулевыми ценами + РРЦ.
// Живые цены подтянет пакетное обновление: новые строки попадают в выборку
// как "никогда не обновлявшиеся".
type Service struct {
	repo *storage.ProductRepository
	log  logger.Logger
}

func NewService(repo *storage.ProductRepository, log logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// ImportXLSX читает активный лист книги.
func (s *Service) ImportXLSX(ctx context.Context, catalog storage.Catalog, r io.Reader) (*models.ImportReport, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer book.Close()

	sheet := book.GetSheetName(book.GetActiveSheetIndex())
	rows, err := book.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read xlsx rows: %w", err)
	}
	if len(rows) > 0 {
		rows = rows[1:] // заголовок
	}
	return s.importRows(ctx, catalog, rows)
}

// ImportCSV читает CSV с теми же колонками; cp1251 перекодируется в UTF-8.
func (s *Service) ImportCSV(ctx context.Context, catalog storage.Catalog, r io.Reader, cp1251 bool) (*models.ImportReport, error) {
	if cp1251 {
		r = transform.NewReader(r, charmap.Windows1251.NewDecoder())
	}

	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1

	var rows [][]string
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if first {
			first = false // заголовок
			continue
		}
		rows = append(rows, record)
	}
	return s.importRows(ctx, catalog, rows)
}

func (s *Service) importRows(ctx context.Context, catalog storage.Catalog, rows [][]string) (*models.ImportReport, error) {
	report := &models.ImportReport{}

	for _, row := range rows {
		report.Total++

		var rrcRaw, nmRaw string
		if len(row) > rrcColumn {
			rrcRaw = row[rrcColumn]
		}
		if len(row) > nmIDColumn {
			nmRaw = row[nmIDColumn]
		}

		nmID, ok := ParseNmID(nmRaw)
		if !ok {
			report.Skipped++
			continue
		}
		rrc := ParsePriceLike(rrcRaw)

		// строка с нулевыми ценами; ui_price не считаем, цен ещё нет
		err := s.repo.Upsert(ctx, catalog, models.Product{NmID: nmID})
		if err == nil {
			err = s.repo.SetFloorPrice(ctx, catalog, nmID, rrc)
		}
		if err != nil {
			report.ErrorsCount++
			s.log.Log("import nm_id=%d: %v", nmID, err)
			continue
		}
		report.Affected++
	}
	return report, nil
}

var nonDigitsRe = regexp.MustCompile(`\D+`)

// ParseNmID аккуратно парсит артикул: берём цифры, проверяем границы.
// nm_id — обычно целое с 6..12 цифрами.
func ParseNmID(raw string) (int64, bool) {
	digits := nonDigitsRe.ReplaceAllString(strings.TrimSpace(raw), "")
	if digits == "" {
		return 0, false
	}
	value, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	if value < 100000 || value > 999999999999 {
		return 0, false
	}
	return value, true
}

var nonPriceCharsRe = regexp.MustCompile(`[^\d.]+`)

// ParsePriceLike парсит цену вида "1 500", "1500,00", "1500.0" -> float.
func ParsePriceLike(raw string) *float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, ",", ".")
	s = nonPriceCharsRe.ReplaceAllString(s, "")
	if s == "" {
		return nil
	}
	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &value
}
