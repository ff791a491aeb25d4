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

/*
Package domain implements the collaborative editing session of one document.

A Domain owns a dispatcher and every operation runs on it, so operations of
one domain are applied one at a time in submission order. A mutation is first
applied to the document, then appended to the log of the domain, and only then
committed. When either step fails the document is rolled back and nothing is
logged, so the log always replays to the committed document.
*/
package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/crema-team/crema/api/types"
	"github.com/crema-team/crema/api/types/events"
	"github.com/crema-team/crema/pkg/dataset"
	"github.com/crema-team/crema/pkg/dispatcher"
	"github.com/crema-team/crema/server/logging"
	"github.com/crema-team/crema/server/profiling/prometheus"
)

// Authentication is the identity of the caller of an operation.
type Authentication interface {
	UserID() string
	DisplayName() string
	Authority() types.Authority

	// ValidateExpired returns an error if the authentication has expired.
	ValidateExpired() error
}

// Publisher receives the events of a domain. Publish is called on the
// dispatcher of the domain and must not block on it.
type Publisher interface {
	Publish(event events.DomainEvent)
}

// Option configures a Domain.
type Option func(*Domain)

// WithMetrics sets the metrics the domain reports to.
func WithMetrics(metrics *prometheus.Metrics) Option {
	return func(d *Domain) {
		d.metrics = metrics
	}
}

// Domain is the editing session of one document shared by its users.
type Domain struct {
	info       types.DomainInfo
	dispatcher *dispatcher.Dispatcher
	log        logging.Logger
	metrics    *prometheus.Metrics

	// The fields below are only accessed on the dispatcher.
	doc       document
	logger    *Logger
	publisher Publisher
	state     types.DomainState
	owner     string
	users     map[string]*User
	order     []string
	kicked    map[string]string
}

// NewTableContentDomain creates a domain editing the rows of the given data
// set. Pending changes of the data set are committed.
func NewTableContentDomain(info types.DomainInfo, ds *dataset.DataSet, opts ...Option) (*Domain, error) {
	info.DomainType = types.DomainTypeTableContent
	ds.AcceptChanges()
	return newDomainWithInfo(info, &tableContent{dataSet: ds}, opts...)
}

// NewTableTemplateDomain creates a domain editing the columns of the given
// template. Pending changes of the template are committed.
func NewTableTemplateDomain(info types.DomainInfo, template *dataset.TableTemplate, opts ...Option) (*Domain, error) {
	info.DomainType = types.DomainTypeTableTemplate
	template.AcceptChanges()
	return newDomainWithInfo(info, &tableTemplate{template: template}, opts...)
}

func newDomainWithInfo(info types.DomainInfo, doc document, opts ...Option) (*Domain, error) {
	if info.ItemType == "" {
		info.ItemType = info.DomainType.ItemType()
	}
	if info.CreatedAt.IsZero() {
		info.CreatedAt = time.Now()
	}
	info.CreatedAt = info.CreatedAt.UTC().Truncate(time.Millisecond)
	if err := info.Validate(); err != nil {
		return nil, err
	}
	return newDomain(info, doc, opts...), nil
}

func newDomain(info types.DomainInfo, doc document, opts ...Option) *Domain {
	d := &Domain{
		info:       info,
		dispatcher: dispatcher.New(fmt.Sprintf("domain-%s", info.ID)),
		log: logging.New("DOMN",
			logging.NewField("domain_id", info.ID.String()),
			logging.NewField("item_path", info.ItemPath),
		),
		doc:    doc,
		state:  types.DomainStateUninitialized,
		users:  make(map[string]*User),
		kicked: make(map[string]string),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ID returns the id of this domain.
func (d *Domain) ID() types.ID {
	return d.info.ID
}

// DataBaseID returns the id of the database this domain belongs to.
func (d *Domain) DataBaseID() types.ID {
	return d.info.DataBaseID
}

// ItemPath returns the path of the item edited in this domain.
func (d *Domain) ItemPath() string {
	return d.info.ItemPath
}

// Type returns the type of this domain.
func (d *Domain) Type() types.DomainType {
	return d.info.DomainType
}

// Info returns the identity of this domain.
func (d *Domain) Info() types.DomainInfo {
	return d.info
}

// String returns a string representation of this domain.
func (d *Domain) String() string {
	return fmt.Sprintf("Domain(%s,%s)", d.info.ItemPath, d.info.ID)
}

// Initialize creates the log of a new domain and activates it.
func (d *Domain) Initialize(ctx context.Context, options LogOptions) error {
	return d.invoke(ctx, "initialize", func() error {
		if d.state != types.DomainStateUninitialized {
			return fmt.Errorf("initialize %s in state %s: %w", d, d.state, ErrInvalidOperation)
		}

		data, err := d.doc.serialize()
		if err != nil {
			return err
		}
		logger, err := CreateLogger(options, d.info, data)
		if err != nil {
			return err
		}
		d.logger = logger
		d.setState(types.DomainStateActive)
		return nil
	})
}

// SetPublisher sets the receiver of the events of this domain.
func (d *Domain) SetPublisher(ctx context.Context, publisher Publisher) error {
	return d.dispatcher.Invoke(ctx, func() error {
		d.publisher = publisher
		return nil
	})
}

// State returns the lifecycle state of this domain.
func (d *Domain) State(ctx context.Context) (types.DomainState, error) {
	state, err := dispatcher.InvokeValue(ctx, d.dispatcher, func() (types.DomainState, error) {
		return d.state, nil
	})
	if errors.Is(err, dispatcher.ErrDispatcherDisposed) {
		return types.DomainStateDisposed, nil
	}
	return state, err
}

// NewRow adds rows to the document and returns them with their generated
// keys.
func (d *Domain) NewRow(
	ctx context.Context,
	auth Authentication,
	rows []types.DomainRowInfo,
	provider types.SignatureDateProvider,
) ([]types.DomainRowInfo, error) {
	return invokeValue(ctx, d, "new-row", func() ([]types.DomainRowInfo, error) {
		return d.mutateRows(EntryNewRow, auth, rows, provider, d.doc.newRows)
	})
}

// SetRow changes fields of rows of the document and returns the changed rows.
func (d *Domain) SetRow(
	ctx context.Context,
	auth Authentication,
	rows []types.DomainRowInfo,
	provider types.SignatureDateProvider,
) ([]types.DomainRowInfo, error) {
	return invokeValue(ctx, d, "set-row", func() ([]types.DomainRowInfo, error) {
		return d.mutateRows(EntrySetRow, auth, rows, provider, d.doc.setRows)
	})
}

// RemoveRow removes rows of the document. A row whose only key is
// types.ClearKey removes every row of its table.
func (d *Domain) RemoveRow(
	ctx context.Context,
	auth Authentication,
	rows []types.DomainRowInfo,
	provider types.SignatureDateProvider,
) ([]types.DomainRowInfo, error) {
	return invokeValue(ctx, d, "remove-row", func() ([]types.DomainRowInfo, error) {
		return d.mutateRows(EntryRemoveRow, auth, rows, provider, d.doc.removeRows)
	})
}

// SetProperty changes a property of the document.
func (d *Domain) SetProperty(
	ctx context.Context,
	auth Authentication,
	name string,
	value interface{},
	provider types.SignatureDateProvider,
) error {
	return d.invoke(ctx, "set-property", func() error {
		if _, err := d.writableUser(auth); err != nil {
			return err
		}

		signature := sign(provider, auth)
		d.doc.setSignature(signature)
		if err := d.doc.setProperty(name, value); err != nil {
			d.doc.reject()
			return err
		}
		if err := d.commit(newPropertyEntry(auth.UserID(), signature, name, value)); err != nil {
			return err
		}

		d.publish(events.DomainEvent{
			Type:          events.DomainPropertyChanged,
			UserID:        auth.UserID(),
			Signature:     signature,
			PropertyName:  name,
			PropertyValue: value,
		})
		if name == PropertyTableName {
			d.publish(events.DomainEvent{
				Type:          events.DomainInfoChanged,
				UserID:        auth.UserID(),
				Signature:     signature,
				PropertyName:  name,
				PropertyValue: value,
			})
		}
		return nil
	})
}

// Rows returns the rows of the given table of the document.
func (d *Domain) Rows(ctx context.Context, tableName string) ([]types.DomainRowInfo, error) {
	return invokeValue(ctx, d, "rows", func() ([]types.DomainRowInfo, error) {
		return d.doc.rows(tableName)
	})
}

// Serialize returns the committed document as compressed XML.
func (d *Domain) Serialize(ctx context.Context) ([]byte, error) {
	return invokeValue(ctx, d, "serialize", func() ([]byte, error) {
		return d.doc.serialize()
	})
}

// MetaData returns a snapshot of this domain, including the serialized
// document if withData is set.
func (d *Domain) MetaData(ctx context.Context, withData bool) (types.DomainMetaData, error) {
	return invokeValue(ctx, d, "metadata", func() (types.DomainMetaData, error) {
		meta := types.DomainMetaData{
			Info:             d.info,
			State:            d.state,
			Owner:            d.owner,
			Users:            d.userInfos(),
			ModificationInfo: d.doc.signature(),
		}
		if withData {
			data, err := d.doc.serialize()
			if err != nil {
				return types.DomainMetaData{}, err
			}
			meta.Data = data
		}
		return meta, nil
	})
}

// Backup copies the log of this domain into dir. The copy restores to the
// committed document as of the call.
func (d *Domain) Backup(ctx context.Context, dir string) error {
	return d.invoke(ctx, "backup", func() error {
		if err := d.checkActive(); err != nil {
			return err
		}
		return d.logger.CopyTo(dir)
	})
}

// CheckDelete returns an error unless the given user may delete this domain:
// administrators, the owner, or any writer while the domain has no owner.
func (d *Domain) CheckDelete(ctx context.Context, auth Authentication) error {
	return d.invoke(ctx, "check-delete", func() error {
		if err := auth.ValidateExpired(); err != nil {
			return err
		}
		if auth.Authority().IsAdmin() || d.owner == auth.UserID() {
			return nil
		}
		if d.owner == "" && auth.Authority().CanWrite() {
			return nil
		}
		return fmt.Errorf("delete %s by %s: %w", d, auth.UserID(), ErrNotOwner)
	})
}

// Delete disposes this domain and removes its log. Unless canceled, the
// committed document is returned so that the caller can persist it.
func (d *Domain) Delete(ctx context.Context, isCanceled bool) ([]byte, error) {
	data, err := invokeValue(ctx, d, "delete", func() ([]byte, error) {
		if d.state != types.DomainStateActive {
			return nil, fmt.Errorf("delete %s in state %s: %w", d, d.state, ErrDomainNotActive)
		}

		d.setState(types.DomainStateDisposing)
		var data []byte
		if !isCanceled {
			var err error
			if data, err = d.doc.serialize(); err != nil {
				d.setState(types.DomainStateActive)
				return nil, err
			}
		}
		if err := d.logger.Delete(); err != nil {
			d.log.Warnf("delete log of %s: %v", d, err)
		}
		d.dispose()
		return data, nil
	})
	if err != nil {
		return nil, err
	}

	d.dispatcher.Dispose()
	return data, nil
}

// Close disposes this domain and keeps its log for a later restoration,
// flushing a snapshot if entries were appended since the last one.
func (d *Domain) Close(ctx context.Context) error {
	err := d.invoke(ctx, "close", func() error {
		if d.state == types.DomainStateDisposed {
			return nil
		}

		d.setState(types.DomainStateDisposing)
		var err error
		if d.logger != nil {
			err = d.logger.Dispose(d.doc.serialize)
		}
		d.dispose()
		return err
	})
	d.dispatcher.Dispose()
	if errors.Is(err, ErrDomainNotActive) {
		return nil
	}
	return err
}

func (d *Domain) dispose() {
	if d.metrics != nil && len(d.users) > 0 {
		d.metrics.AddDomainUsers(string(d.info.DomainType), -len(d.users))
	}
	d.users = make(map[string]*User)
	d.order = nil
	d.owner = ""
	d.setState(types.DomainStateDisposed)
}

// mutateRows applies a row mutation, logs it and commits it.
func (d *Domain) mutateRows(
	entryType EntryType,
	auth Authentication,
	rows []types.DomainRowInfo,
	provider types.SignatureDateProvider,
	apply func([]types.DomainRowInfo) ([]types.DomainRowInfo, error),
) ([]types.DomainRowInfo, error) {
	u, err := d.writableUser(auth)
	if err != nil {
		return nil, err
	}
	if err := types.ValidateRowInfos(rows); err != nil {
		return nil, err
	}
	if entryType != EntryNewRow {
		if err := d.checkLocked(u, rows); err != nil {
			return nil, err
		}
	}

	signature := sign(provider, auth)
	d.doc.setSignature(signature)
	result, err := apply(rows)
	if err != nil {
		d.doc.reject()
		return nil, err
	}

	// changed rows are found again by the keys they had before the change
	logged := result
	if entryType == EntrySetRow {
		logged = rows
	}
	if err := d.commit(newRowEntry(entryType, auth.UserID(), signature, logged)); err != nil {
		return nil, err
	}

	d.publish(events.DomainEvent{
		Type:      rowEventType(entryType),
		UserID:    auth.UserID(),
		Signature: signature,
		Rows:      result,
	})
	return result, nil
}

// commit appends the entry of the pending mutation to the log and commits the
// document, or rolls the document back if the entry cannot be written.
func (d *Domain) commit(entry *LogEntry) error {
	if d.logger != nil {
		if err := d.logger.Append(entry); err != nil {
			d.doc.reject()
			return err
		}
	}
	d.doc.accept()

	if d.logger != nil && d.logger.NeedsSnapshot() {
		data, err := d.doc.serialize()
		if err == nil {
			err = d.logger.Snapshot(data)
		}
		if err != nil {
			d.log.Warnf("snapshot %s at %d: %v", d, d.logger.Seq(), err)
		}
	}
	return nil
}

// replay applies a logged entry during restoration.
func (d *Domain) replay(entry *LogEntry) error {
	d.doc.setSignature(entry.Signature)

	var err error
	switch entry.Type {
	case EntryNewRow:
		_, err = d.doc.newRows(entry.Rows)
	case EntrySetRow:
		_, err = d.doc.setRows(entry.Rows)
	case EntryRemoveRow:
		_, err = d.doc.removeRows(entry.Rows)
	case EntrySetProperty:
		err = d.doc.setProperty(entry.PropertyName, entry.PropertyValue)
	default:
		err = fmt.Errorf("unknown entry type %q", entry.Type)
	}
	if err != nil {
		d.doc.reject()
		return fmt.Errorf("replay entry %d: %s: %w", entry.Seq, err.Error(), ErrCorruptedLog)
	}

	d.doc.accept()
	return nil
}

func (d *Domain) checkActive() error {
	if d.state != types.DomainStateActive {
		return fmt.Errorf("%s in state %s: %w", d, d.state, ErrDomainNotActive)
	}
	return nil
}

func (d *Domain) setState(state types.DomainState) {
	if d.state == state {
		return
	}
	d.state = state
	d.publish(events.DomainEvent{
		Type:  events.DomainStateChanged,
		State: state,
	})
}

func (d *Domain) publish(event events.DomainEvent) {
	if d.publisher == nil {
		return
	}
	event.DataBaseID = d.info.DataBaseID
	event.Domains = []types.DomainInfo{d.info}
	d.publisher.Publish(event)
}

func (d *Domain) invoke(ctx context.Context, operation string, fn func() error) error {
	_, err := invokeValue(ctx, d, operation, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

func invokeValue[T any](ctx context.Context, d *Domain, operation string, fn func() (T, error)) (T, error) {
	start := time.Now()
	result, err := dispatcher.InvokeValue(ctx, d.dispatcher, fn)
	if errors.Is(err, dispatcher.ErrDispatcherDisposed) {
		err = fmt.Errorf("%s: %w", d, ErrDomainNotActive)
	}

	duration := time.Since(start)
	logging.LogOperation(d.log, operation, duration, err)
	if d.metrics != nil {
		d.metrics.ObserveDomainOperation(string(d.info.DomainType), operation, duration.Seconds(), err)
	}
	return result, err
}

func sign(provider types.SignatureDateProvider, auth Authentication) types.SignatureDate {
	if provider == nil {
		provider = types.NewSignatureDateProvider(auth.UserID())
	}
	signature := provider.Provide()
	if signature.ID == "" {
		signature.ID = auth.UserID()
	}
	if signature.DateTime.IsZero() {
		signature.DateTime = time.Now()
	}
	signature.DateTime = signature.DateTime.UTC().Truncate(time.Millisecond)
	return signature
}

func rowEventType(entryType EntryType) events.DomainEventType {
	switch entryType {
	case EntryNewRow:
		return events.DomainRowAdded
	case EntrySetRow:
		return events.DomainRowChanged
	}
	return events.DomainRowRemoved
}
