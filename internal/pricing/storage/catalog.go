package storage

import (
	"fmt"
	"regexp"

	"pricewatch_api/config/values"
)

// Catalog — проверенное имя каталога. Получить его можно только через
// Resolver, поэтому имя таблицы никогда не строится из сырого параметра
// запроса.
type Catalog struct {
	name string
}

func (c Catalog) Name() string { return c.name }

// TableName — имя таблицы товаров каталога.
func (c Catalog) TableName() string { return "products_" + c.name }

// LockName — имя advisory-блокировки полного обхода каталога.
func (c Catalog) LockName() string { return "pricewatch:full_sweep:" + c.name }

var catalogNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]{0,30}$`)

// Resolver приводит имя каталога из запроса к белому списку; всё, что вне
// списка, сводится к каталогу по умолчанию (первому в списке).
type Resolver struct {
	names      map[string]struct{}
	defaultCat Catalog
	all        []Catalog
}

func NewResolver(v values.CatalogValues) (*Resolver, error) {
	if len(v.Names) == 0 {
		return nil, fmt.Errorf("catalog whitelist is empty")
	}
	r := &Resolver{names: make(map[string]struct{}, len(v.Names))}
	for _, name := range v.Names {
		if !catalogNameRe.MatchString(name) {
			return nil, fmt.Errorf("invalid catalog name %q", name)
		}
		if _, ok := r.names[name]; ok {
			continue
		}
		r.names[name] = struct{}{}
		r.all = append(r.all, Catalog{name: name})
	}
	r.defaultCat = r.all[0]
	return r, nil
}

// Resolve никогда не отклоняет запрос: неизвестное имя — это каталог по
// умолчанию.
func (r *Resolver) Resolve(name string) Catalog {
	if _, ok := r.names[name]; ok {
		return Catalog{name: name}
	}
	return r.defaultCat
}

func (r *Resolver) Default() Catalog { return r.defaultCat }

func (r *Resolver) All() []Catalog { return r.all }
