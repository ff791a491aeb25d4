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
package domain

import (
	"errors"
	"fmt"

	"github.com/crema-team/crema/api/types"
	"github.com/crema-team/crema/pkg/dataset"
)

// Properties of table template domains.
const (
	// PropertyTableName renames the table. Only new templates can be renamed.
	PropertyTableName = "TableName"

	// PropertyComment changes the comment of the table.
	PropertyComment = "Comment"

	// PropertyTags changes the tags of the table.
	PropertyTags = "Tags"
)

// tableTemplate is the document of table template domains. Each row is a
// column of the template, keyed by the column name.
type tableTemplate struct {
	template *dataset.TableTemplate
}

func (t *tableTemplate) domainType() types.DomainType {
	return types.DomainTypeTableTemplate
}

func (t *tableTemplate) newRows(rows []types.DomainRowInfo) ([]types.DomainRowInfo, error) {
	var result []types.DomainRowInfo
	for _, info := range rows {
		if err := t.checkTable(info.TableName); err != nil {
			return nil, err
		}
		c, err := t.template.AddColumn(info.Fields)
		if err != nil {
			return nil, err
		}
		result = append(result, t.rowInfo(c))
	}
	return result, nil
}

func (t *tableTemplate) setRows(rows []types.DomainRowInfo) ([]types.DomainRowInfo, error) {
	var result []types.DomainRowInfo
	for _, info := range rows {
		if err := t.checkTable(info.TableName); err != nil {
			return nil, err
		}
		name, err := columnName(info.Keys)
		if err != nil {
			return nil, err
		}
		c, err := t.template.SetColumn(name, info.Fields)
		if err != nil {
			return nil, err
		}
		result = append(result, t.rowInfo(c))
	}
	return result, nil
}

func (t *tableTemplate) removeRows(rows []types.DomainRowInfo) ([]types.DomainRowInfo, error) {
	var result []types.DomainRowInfo
	for _, info := range rows {
		if err := t.checkTable(info.TableName); err != nil {
			return nil, err
		}
		if info.IsClearKey() {
			t.template.ClearColumns()
			result = append(result, types.ClearRowInfo(info.TableName))
			continue
		}

		name, err := columnName(info.Keys)
		if err != nil {
			return nil, err
		}
		if _, err := t.template.RemoveColumn(name); err != nil {
			return nil, err
		}
		result = append(result, types.DomainRowInfo{
			TableName: info.TableName,
			Keys:      []interface{}{name},
		})
	}
	return result, nil
}

func (t *tableTemplate) setProperty(name string, value interface{}) error {
	switch name {
	case PropertyTableName, PropertyComment, PropertyTags:
	default:
		return fmt.Errorf("%s of table template: %w", name, ErrNotSupported)
	}

	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("%s must be a string, not %T: %w", name, value, ErrInvalidPropertyValue)
	}

	switch name {
	case PropertyTableName:
		if err := t.template.SetTableName(s); err != nil {
			if errors.Is(err, dataset.ErrTemplateNotNew) {
				return fmt.Errorf("%w: %w", ErrInvalidOperation, err)
			}
			return err
		}
	case PropertyComment:
		t.template.SetComment(s)
	case PropertyTags:
		t.template.SetTags(s)
	}
	return nil
}

func (t *tableTemplate) rows(tableName string) ([]types.DomainRowInfo, error) {
	if err := t.checkTable(tableName); err != nil {
		return nil, err
	}

	var result []types.DomainRowInfo
	for _, c := range t.template.Columns() {
		result = append(result, t.rowInfo(c))
	}
	return result, nil
}

func (t *tableTemplate) checkTable(tableName string) error {
	if tableName != t.template.TableName() {
		return fmt.Errorf("%s is not %s: %w", tableName, t.template.TableName(), ErrTableMismatch)
	}
	return nil
}

func (t *tableTemplate) rowInfo(c *dataset.Column) types.DomainRowInfo {
	return types.DomainRowInfo{
		TableName: t.template.TableName(),
		Keys:      []interface{}{c.Name},
		Fields:    c.Fields(),
	}
}

func (t *tableTemplate) setSignature(signature types.SignatureDate) {
	t.template.SetSignature(toSignature(signature))
}

func (t *tableTemplate) signature() types.SignatureDate {
	return toSignatureDate(t.template.Signature())
}

func (t *tableTemplate) accept() {
	t.template.AcceptChanges()
}

func (t *tableTemplate) reject() {
	t.template.RejectChanges()
}

func (t *tableTemplate) serialize() ([]byte, error) {
	return t.template.MarshalCompressed()
}

func columnName(keys []interface{}) (string, error) {
	if len(keys) != 1 {
		return "", fmt.Errorf("%d keys for a column: %w", len(keys), dataset.ErrInvalidKeys)
	}
	name, ok := keys[0].(string)
	if !ok || name == "" {
		return "", fmt.Errorf("column key %v: %w", keys[0], dataset.ErrInvalidKeys)
	}
	return name, nil
}
