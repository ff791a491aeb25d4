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
	"fmt"

	"github.com/crema-team/crema/api/types"
	"github.com/crema-team/crema/pkg/dataset"
)

// tableContent is the document of table content domains: the rows of a data
// set.
type tableContent struct {
	dataSet *dataset.DataSet
}

func (c *tableContent) domainType() types.DomainType {
	return types.DomainTypeTableContent
}

func (c *tableContent) newRows(rows []types.DomainRowInfo) ([]types.DomainRowInfo, error) {
	var result []types.DomainRowInfo
	for _, info := range rows {
		row, err := c.dataSet.AddRow(info.TableName, info.Fields)
		if err != nil {
			return nil, err
		}
		added, err := c.rowInfo(info.TableName, row)
		if err != nil {
			return nil, err
		}
		result = append(result, added)
	}
	return result, nil
}

func (c *tableContent) setRows(rows []types.DomainRowInfo) ([]types.DomainRowInfo, error) {
	var result []types.DomainRowInfo
	for _, info := range rows {
		row, err := c.dataSet.SetRow(info.TableName, info.Keys, info.Fields)
		if err != nil {
			return nil, err
		}
		changed, err := c.rowInfo(info.TableName, row)
		if err != nil {
			return nil, err
		}
		result = append(result, changed)
	}
	return result, nil
}

func (c *tableContent) removeRows(rows []types.DomainRowInfo) ([]types.DomainRowInfo, error) {
	var result []types.DomainRowInfo
	for _, info := range rows {
		if info.IsClearKey() {
			if _, err := c.dataSet.ClearRows(info.TableName); err != nil {
				return nil, err
			}
			result = append(result, types.ClearRowInfo(info.TableName))
			continue
		}

		row, err := c.dataSet.RemoveRow(info.TableName, info.Keys)
		if err != nil {
			return nil, err
		}
		removed, err := c.rowInfo(info.TableName, row)
		if err != nil {
			return nil, err
		}
		removed.Fields = nil
		result = append(result, removed)
	}
	return result, nil
}

func (c *tableContent) setProperty(name string, _ interface{}) error {
	return fmt.Errorf("%s of table content: %w", name, ErrNotSupported)
}

func (c *tableContent) rows(tableName string) ([]types.DomainRowInfo, error) {
	table, err := c.dataSet.Table(tableName)
	if err != nil {
		return nil, err
	}

	var result []types.DomainRowInfo
	for _, row := range table.Rows() {
		result = append(result, types.DomainRowInfo{
			TableName: tableName,
			Keys:      table.KeysOf(row),
			Fields:    row.Fields(),
		})
	}
	return result, nil
}

func (c *tableContent) rowInfo(tableName string, row *dataset.Row) (types.DomainRowInfo, error) {
	table, err := c.dataSet.Table(tableName)
	if err != nil {
		return types.DomainRowInfo{}, err
	}
	return types.DomainRowInfo{
		TableName: tableName,
		Keys:      table.KeysOf(row),
		Fields:    row.Fields(),
	}, nil
}

func (c *tableContent) setSignature(signature types.SignatureDate) {
	c.dataSet.SetSignature(toSignature(signature))
}

func (c *tableContent) signature() types.SignatureDate {
	return toSignatureDate(c.dataSet.Signature())
}

func (c *tableContent) accept() {
	c.dataSet.AcceptChanges()
}

func (c *tableContent) reject() {
	c.dataSet.RejectChanges()
}

func (c *tableContent) serialize() ([]byte, error) {
	return c.dataSet.MarshalCompressed()
}
