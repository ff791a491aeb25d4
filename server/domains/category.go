/*
 * Copyright 2025 The Crema Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package domains

import (
	"sort"
	"strings"

	"github.com/crema-team/crema/api/types"
	"github.com/crema-team/crema/server/domain"
)

// Item is a node of the category tree: a *DataBaseCategory, a *Category or a
// *DomainItem. Category paths end with a slash.
type Item interface {
	Path() string
	item()
}

// DataBaseCategory is the root category of the domains of one database.
type DataBaseCategory struct {
	info       types.DataBaseInfo
	categories map[string]*Category
}

func newDataBaseCategory(info types.DataBaseInfo) *DataBaseCategory {
	c := &DataBaseCategory{
		info:       *info.DeepCopy(),
		categories: make(map[string]*Category),
	}
	for _, t := range []types.DomainType{types.DomainTypeTableContent, types.DomainTypeTableTemplate} {
		c.categories[t.ItemType()] = &Category{
			path:     c.Path() + t.ItemType() + "/",
			itemType: t.ItemType(),
			domains:  make(map[types.ID]*DomainItem),
		}
	}
	return c
}

// Info returns the database of this category.
func (c *DataBaseCategory) Info() types.DataBaseInfo {
	return c.info
}

// Path returns the path of this category.
func (c *DataBaseCategory) Path() string {
	return "/" + c.info.Name + "/"
}

// Categories returns the child categories sorted by path.
func (c *DataBaseCategory) Categories() []*Category {
	categories := make([]*Category, 0, len(c.categories))
	for _, child := range c.categories {
		categories = append(categories, child)
	}
	sort.Slice(categories, func(i, j int) bool {
		return categories[i].path < categories[j].path
	})
	return categories
}

// Category returns the child category of the given item type.
func (c *DataBaseCategory) Category(itemType string) (*Category, bool) {
	child, ok := c.categories[itemType]
	return child, ok
}

func (c *DataBaseCategory) item() {}

// Category holds the domains of one item type of a database.
type Category struct {
	path     string
	itemType string
	domains  map[types.ID]*DomainItem
}

// Path returns the path of this category.
func (c *Category) Path() string {
	return c.path
}

// ItemType returns the item type of the domains of this category.
func (c *Category) ItemType() string {
	return c.itemType
}

// Items returns the domain items sorted by path.
func (c *Category) Items() []*DomainItem {
	items := make([]*DomainItem, 0, len(c.domains))
	for _, i := range c.domains {
		items = append(items, i)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Path() < items[j].Path()
	})
	return items
}

func (c *Category) item() {}

// DomainItem is the leaf of a live domain.
type DomainItem struct {
	category *Category
	domain   *domain.Domain
}

// Path returns the item path of the domain.
func (i *DomainItem) Path() string {
	return i.domain.ItemPath()
}

// CategoryPath returns the path of the category of the domain.
func (i *DomainItem) CategoryPath() string {
	return i.category.path
}

// Domain returns the domain of this item.
func (i *DomainItem) Domain() *domain.Domain {
	return i.domain
}

func (i *DomainItem) item() {}

// categoryTree holds the database categories of a context. It is only used on
// the dispatcher of the context.
type categoryTree struct {
	databases map[types.ID]*DataBaseCategory
}

func newCategoryTree() *categoryTree {
	return &categoryTree{databases: make(map[types.ID]*DataBaseCategory)}
}

func (t *categoryTree) add(d *domain.Domain) bool {
	db, ok := t.databases[d.DataBaseID()]
	if !ok {
		return false
	}
	category, ok := db.Category(d.Info().ItemType)
	if !ok {
		return false
	}
	category.domains[d.ID()] = &DomainItem{category: category, domain: d}
	return true
}

func (t *categoryTree) remove(info types.DomainInfo) {
	db, ok := t.databases[info.DataBaseID]
	if !ok {
		return
	}
	if category, ok := db.Category(info.ItemType); ok {
		delete(category.domains, info.ID)
	}
}

// categoryPath returns the path of the category of the given domain. Once its
// database is gone the path is taken from the item path.
func (t *categoryTree) categoryPath(info types.DomainInfo) string {
	if db, ok := t.databases[info.DataBaseID]; ok {
		if category, ok := db.Category(info.ItemType); ok {
			return category.path
		}
		return db.Path()
	}

	// "/<database>/<item type>/..."
	parts := strings.SplitN(info.ItemPath, "/", 4)
	if len(parts) < 4 {
		return ""
	}
	return "/" + parts[1] + "/" + parts[2] + "/"
}

// find returns the item of the given path.
func (t *categoryTree) find(path string) (Item, bool) {
	for _, db := range t.databases {
		if path == db.Path() {
			return db, true
		}
		if !strings.HasPrefix(path, db.Path()) {
			continue
		}
		for _, category := range db.categories {
			if path == category.path {
				return category, true
			}
			for _, i := range category.domains {
				if i.Path() == path {
					return i, true
				}
			}
		}
	}
	return nil, false
}
