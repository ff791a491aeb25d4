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

// document is the variant part of a domain: the transactional document it
// edits. Mutations stay pending until accept or reject.
type document interface {
	domainType() types.DomainType

	// newRows adds rows and returns them with every field, generated keys
	// included.
	newRows(rows []types.DomainRowInfo) ([]types.DomainRowInfo, error)

	// setRows changes rows and returns them as they are after the change.
	setRows(rows []types.DomainRowInfo) ([]types.DomainRowInfo, error)

	// removeRows removes rows, or clears a table for the clear key.
	removeRows(rows []types.DomainRowInfo) ([]types.DomainRowInfo, error)

	setProperty(name string, value interface{}) error
	rows(tableName string) ([]types.DomainRowInfo, error)

	setSignature(signature types.SignatureDate)
	signature() types.SignatureDate
	accept()
	reject()

	serialize() ([]byte, error)
}

func loadDocument(domainType types.DomainType, data []byte) (document, error) {
	switch domainType {
	case types.DomainTypeTableContent:
		ds, err := dataset.UnmarshalCompressed(data)
		if err != nil {
			return nil, err
		}
		return &tableContent{dataSet: ds}, nil
	case types.DomainTypeTableTemplate:
		template, err := dataset.UnmarshalTemplateCompressed(data)
		if err != nil {
			return nil, err
		}
		return &tableTemplate{template: template}, nil
	}
	return nil, fmt.Errorf("domain type %q: %w", domainType, ErrCorruptedLog)
}

func toSignatureDate(s dataset.Signature) types.SignatureDate {
	return types.SignatureDate{ID: s.ID, DateTime: s.DateTime}
}

func toSignature(s types.SignatureDate) dataset.Signature {
	return dataset.Signature{ID: s.ID, DateTime: s.DateTime}
}
