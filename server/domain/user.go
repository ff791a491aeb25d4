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
	"context"
	"fmt"

	"github.com/crema-team/crema/api/types"
	"github.com/crema-team/crema/api/types/events"
	"github.com/crema-team/crema/pkg/errors"
)

// User is a user who entered a domain. Its state belongs to the domain and
// is only changed on the dispatcher of the domain; the methods of User
// forward to the domain with the authentication the user entered with.
type User struct {
	domain     *Domain
	auth       Authentication
	accessType types.DomainAccessType

	state    types.DomainUserState
	location types.DomainLocationInfo
}

// UserID returns the id of this user.
func (u *User) UserID() string {
	return u.auth.UserID()
}

// DisplayName returns the display name of this user.
func (u *User) DisplayName() string {
	return u.auth.DisplayName()
}

// AccessType returns the access type this user entered with.
func (u *User) AccessType() types.DomainAccessType {
	return u.accessType
}

// Domain returns the domain this user entered.
func (u *User) Domain() *Domain {
	return u.domain
}

// Info returns the current state of this user.
func (u *User) Info(ctx context.Context) (types.DomainUserInfo, error) {
	return invokeValue(ctx, u.domain, "user-info", func() (types.DomainUserInfo, error) {
		if u.domain.users[u.UserID()] != u {
			return types.DomainUserInfo{}, fmt.Errorf("%s: %w", u.UserID(), ErrUserNotEntered)
		}
		return u.domain.userInfo(u), nil
	})
}

// BeginEdit starts editing the given location.
func (u *User) BeginEdit(ctx context.Context, location types.DomainLocationInfo) error {
	return u.domain.BeginUserEdit(ctx, u.auth, location)
}

// EndEdit stops editing.
func (u *User) EndEdit(ctx context.Context) error {
	return u.domain.EndUserEdit(ctx, u.auth)
}

// SetLocation moves this user to the given location.
func (u *User) SetLocation(ctx context.Context, location types.DomainLocationInfo) error {
	return u.domain.SetUserLocation(ctx, u.auth, location)
}

// SetOwner transfers the ownership of the domain to the given user.
func (u *User) SetOwner(ctx context.Context, userID string) error {
	return u.domain.SetOwner(ctx, u.auth, userID)
}

// Kick removes the given user from the domain.
func (u *User) Kick(ctx context.Context, userID, comment string) (types.DomainUserInfo, error) {
	return u.domain.Kick(ctx, u.auth, userID, comment)
}

// NewRow adds rows as this user.
func (u *User) NewRow(ctx context.Context, rows []types.DomainRowInfo) ([]types.DomainRowInfo, error) {
	return u.domain.NewRow(ctx, u.auth, rows, nil)
}

// SetRow changes rows as this user.
func (u *User) SetRow(ctx context.Context, rows []types.DomainRowInfo) ([]types.DomainRowInfo, error) {
	return u.domain.SetRow(ctx, u.auth, rows, nil)
}

// RemoveRow removes rows as this user.
func (u *User) RemoveRow(ctx context.Context, rows []types.DomainRowInfo) ([]types.DomainRowInfo, error) {
	return u.domain.RemoveRow(ctx, u.auth, rows, nil)
}

// SetProperty changes a property of the document as this user.
func (u *User) SetProperty(ctx context.Context, name string, value interface{}) error {
	return u.domain.SetProperty(ctx, u.auth, name, value, nil)
}

// Leave removes this user from the domain.
func (u *User) Leave(ctx context.Context) error {
	return u.domain.Leave(ctx, u.auth)
}

// Enter adds the given user to this domain. Writers can own the domain: the
// first writer to enter an ownerless domain becomes its owner.
func (d *Domain) Enter(ctx context.Context, auth Authentication, accessType types.DomainAccessType) (*User, error) {
	return invokeValue(ctx, d, "enter", func() (*User, error) {
		if err := auth.ValidateExpired(); err != nil {
			return nil, err
		}
		if err := d.checkActive(); err != nil {
			return nil, err
		}

		switch accessType {
		case types.DomainAccessTypeReadOnly:
		case types.DomainAccessTypeReadWrite:
			if !auth.Authority().CanWrite() {
				return nil, fmt.Errorf("%s as %s: %w", auth.UserID(), auth.Authority(), ErrReadOnlyAccess)
			}
		default:
			return nil, fmt.Errorf("%q: %w", accessType, ErrInvalidAccessType)
		}

		userID := auth.UserID()
		if _, ok := d.users[userID]; ok {
			return nil, fmt.Errorf("%s: %w", userID, ErrUserAlreadyEntered)
		}

		delete(d.kicked, userID)
		u := &User{
			domain:     d,
			auth:       auth,
			accessType: accessType,
			state:      types.DomainUserStateOnline,
		}
		d.users[userID] = u
		d.order = append(d.order, userID)
		if d.metrics != nil {
			d.metrics.AddDomainUsers(string(d.info.DomainType), 1)
		}

		d.publish(events.DomainEvent{
			Type:   events.DomainUserAdded,
			UserID: userID,
			User:   d.userInfo(u),
		})
		if accessType == types.DomainAccessTypeReadWrite && d.owner == "" {
			d.setOwner(userID, userID)
		}
		return u, nil
	})
}

// Leave removes the given user from this domain. The ownership passes to
// another writer if the user owned the domain.
func (d *Domain) Leave(ctx context.Context, auth Authentication) error {
	return d.invoke(ctx, "leave", func() error {
		if err := d.checkActive(); err != nil {
			return err
		}
		u, ok := d.users[auth.UserID()]
		if !ok {
			return d.notEntered(auth.UserID())
		}

		info := d.userInfo(u)
		d.removeUser(u)
		d.publish(events.DomainEvent{
			Type:       events.DomainUserRemoved,
			UserID:     auth.UserID(),
			User:       info,
			RemoveInfo: types.RemoveInfo{Reason: types.RemoveReasonLeft},
		})
		if d.owner == auth.UserID() {
			d.handOffOwner(auth.UserID())
		}
		return nil
	})
}

// User returns the user of the given id who entered this domain.
func (d *Domain) User(ctx context.Context, userID string) (*User, error) {
	return invokeValue(ctx, d, "user", func() (*User, error) {
		u, ok := d.users[userID]
		if !ok {
			return nil, d.notEntered(userID)
		}
		return u, nil
	})
}

// Users returns the users of this domain in the order they entered.
func (d *Domain) Users(ctx context.Context) ([]types.DomainUserInfo, error) {
	return invokeValue(ctx, d, "users", func() ([]types.DomainUserInfo, error) {
		return d.userInfos(), nil
	})
}

// Owner returns the id of the owner of this domain, or an empty string.
func (d *Domain) Owner(ctx context.Context) (string, error) {
	return invokeValue(ctx, d, "owner", func() (string, error) {
		return d.owner, nil
	})
}

// BeginUserEdit marks the given user as editing the location. Rows under edit
// cannot be changed or removed by other users.
func (d *Domain) BeginUserEdit(ctx context.Context, auth Authentication, location types.DomainLocationInfo) error {
	return d.invoke(ctx, "begin-user-edit", func() error {
		u, err := d.writableUser(auth)
		if err != nil {
			return err
		}
		if location.TableName == "" {
			return fmt.Errorf("edit without table: %w", ErrInvalidLocation)
		}
		for _, other := range d.users {
			if other != u && other.state == types.DomainUserStateEditing && sameRow(other.location, location) {
				return fmt.Errorf("%s is editing %s: %w", other.UserID(), location.TableName, ErrLocationLocked)
			}
		}

		u.state = types.DomainUserStateEditing
		u.location = location
		d.publish(events.DomainEvent{
			Type:     events.DomainUserEditBegun,
			UserID:   auth.UserID(),
			User:     d.userInfo(u),
			Location: location,
		})
		return nil
	})
}

// EndUserEdit ends the edit of the given user.
func (d *Domain) EndUserEdit(ctx context.Context, auth Authentication) error {
	return d.invoke(ctx, "end-user-edit", func() error {
		u, err := d.attachedUser(auth)
		if err != nil {
			return err
		}
		if u.state != types.DomainUserStateEditing {
			return fmt.Errorf("%s: %w", auth.UserID(), ErrNotEditing)
		}

		u.state = types.DomainUserStateOnline
		d.publish(events.DomainEvent{
			Type:     events.DomainUserEditEnded,
			UserID:   auth.UserID(),
			User:     d.userInfo(u),
			Location: u.location,
		})
		return nil
	})
}

// SetUserLocation moves the given user to the location. A user editing a
// location must end the edit before moving.
func (d *Domain) SetUserLocation(ctx context.Context, auth Authentication, location types.DomainLocationInfo) error {
	return d.invoke(ctx, "set-user-location", func() error {
		u, err := d.attachedUser(auth)
		if err != nil {
			return err
		}
		if u.state == types.DomainUserStateEditing {
			return fmt.Errorf("move %s while editing: %w", auth.UserID(), ErrInvalidOperation)
		}

		u.location = location
		d.publish(events.DomainEvent{
			Type:     events.DomainUserLocationChanged,
			UserID:   auth.UserID(),
			User:     d.userInfo(u),
			Location: location,
		})
		return nil
	})
}

// SetOwner transfers the ownership to the given user, who must be an online
// writer. Only the owner or an administrator can transfer it.
func (d *Domain) SetOwner(ctx context.Context, auth Authentication, userID string) error {
	return d.invoke(ctx, "set-owner", func() error {
		if _, err := d.ownerOrAdmin(auth); err != nil {
			return err
		}

		target, ok := d.users[userID]
		if !ok {
			return d.notEntered(userID)
		}
		if target.accessType != types.DomainAccessTypeReadWrite || target.state == types.DomainUserStateOffline {
			return fmt.Errorf("%s: %w", userID, ErrInvalidOwner)
		}

		d.setOwner(userID, auth.UserID())
		return nil
	})
}

// Kick removes the given user from this domain. Operations of the kicked user
// fail with ErrUserKicked until the user enters again.
func (d *Domain) Kick(ctx context.Context, auth Authentication, userID, comment string) (types.DomainUserInfo, error) {
	return invokeValue(ctx, d, "kick", func() (types.DomainUserInfo, error) {
		if _, err := d.ownerOrAdmin(auth); err != nil {
			return types.DomainUserInfo{}, err
		}
		if userID == auth.UserID() {
			return types.DomainUserInfo{}, fmt.Errorf("kick %s by itself: %w", userID, ErrInvalidOperation)
		}
		target, ok := d.users[userID]
		if !ok {
			return types.DomainUserInfo{}, d.notEntered(userID)
		}

		info := d.userInfo(target)
		d.removeUser(target)
		d.kicked[userID] = comment
		d.publish(events.DomainEvent{
			Type:   events.DomainUserRemoved,
			UserID: auth.UserID(),
			User:   info,
			RemoveInfo: types.RemoveInfo{
				Reason:  types.RemoveReasonKicked,
				Comment: comment,
			},
		})
		if d.owner == userID {
			d.handOffOwner(auth.UserID())
		}
		return info, nil
	})
}

// Attach brings the given users who entered this domain back online. Unknown
// users are ignored.
func (d *Domain) Attach(ctx context.Context, auths ...Authentication) error {
	return d.invoke(ctx, "attach", func() error {
		if err := d.checkActive(); err != nil {
			return err
		}
		for _, auth := range auths {
			u, ok := d.users[auth.UserID()]
			if !ok || u.state != types.DomainUserStateOffline {
				continue
			}
			d.setUserState(u, types.DomainUserStateOnline)
		}
		return nil
	})
}

// Detach takes the given users offline. Their edits end but they stay in the
// domain and keep the ownership.
func (d *Domain) Detach(ctx context.Context, auths ...Authentication) error {
	return d.invoke(ctx, "detach", func() error {
		if err := d.checkActive(); err != nil {
			return err
		}
		for _, auth := range auths {
			u, ok := d.users[auth.UserID()]
			if !ok || u.state == types.DomainUserStateOffline {
				continue
			}
			d.setUserState(u, types.DomainUserStateOffline)
		}
		return nil
	})
}

func (d *Domain) setUserState(u *User, state types.DomainUserState) {
	u.state = state
	d.publish(events.DomainEvent{
		Type:   events.DomainUserStateChanged,
		UserID: u.UserID(),
		User:   d.userInfo(u),
	})
}

// attachedUser returns the online user of the given authentication.
func (d *Domain) attachedUser(auth Authentication) (*User, error) {
	if err := auth.ValidateExpired(); err != nil {
		return nil, err
	}
	if err := d.checkActive(); err != nil {
		return nil, err
	}

	u, ok := d.users[auth.UserID()]
	if !ok {
		return nil, d.notEntered(auth.UserID())
	}
	if u.state == types.DomainUserStateOffline {
		return nil, fmt.Errorf("%s is offline: %w", auth.UserID(), ErrUserNotEntered)
	}
	return u, nil
}

func (d *Domain) writableUser(auth Authentication) (*User, error) {
	u, err := d.attachedUser(auth)
	if err != nil {
		return nil, err
	}
	if u.accessType != types.DomainAccessTypeReadWrite {
		return nil, fmt.Errorf("%s: %w", auth.UserID(), ErrReadOnlyAccess)
	}
	return u, nil
}

func (d *Domain) ownerOrAdmin(auth Authentication) (*User, error) {
	u, err := d.attachedUser(auth)
	if err != nil {
		return nil, err
	}
	if d.owner != auth.UserID() && !auth.Authority().IsAdmin() {
		return nil, fmt.Errorf("%s: %w", auth.UserID(), ErrNotOwner)
	}
	return u, nil
}

func (d *Domain) notEntered(userID string) error {
	if comment, ok := d.kicked[userID]; ok {
		return errors.WithMetadata(
			fmt.Errorf("%s: %w", userID, ErrUserKicked),
			map[string]string{"comment": comment},
		)
	}
	return fmt.Errorf("%s: %w", userID, ErrUserNotEntered)
}

func (d *Domain) removeUser(u *User) {
	userID := u.UserID()
	delete(d.users, userID)
	for i, id := range d.order {
		if id == userID {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	if d.metrics != nil {
		d.metrics.AddDomainUsers(string(d.info.DomainType), -1)
	}
}

// handOffOwner passes the ownership to the first online writer, or leaves
// the domain without owner.
func (d *Domain) handOffOwner(causedBy string) {
	next := ""
	for _, id := range d.order {
		u := d.users[id]
		if u.accessType == types.DomainAccessTypeReadWrite && u.state != types.DomainUserStateOffline {
			next = id
			break
		}
	}
	d.setOwner(next, causedBy)
}

func (d *Domain) setOwner(userID, causedBy string) {
	if d.owner == userID {
		return
	}
	d.owner = userID
	d.publish(events.DomainEvent{
		Type:   events.DomainOwnerChanged,
		UserID: causedBy,
		Owner:  userID,
	})
}

// checkLocked returns an error if another user is editing one of the rows.
func (d *Domain) checkLocked(u *User, rows []types.DomainRowInfo) error {
	for _, other := range d.users {
		if other == u || other.state != types.DomainUserStateEditing {
			continue
		}
		for _, row := range rows {
			if other.location.TableName != row.TableName {
				continue
			}
			if row.IsClearKey() || sameKeys(other.location.Keys, row.Keys) {
				return fmt.Errorf("%s is editing %s: %w", other.UserID(), row.TableName, ErrLocationLocked)
			}
		}
	}
	return nil
}

func (d *Domain) userInfo(u *User) types.DomainUserInfo {
	return types.DomainUserInfo{
		UserID:      u.UserID(),
		DisplayName: u.DisplayName(),
		AccessType:  u.accessType,
		State:       u.state,
		Location:    u.location,
		IsOwner:     d.owner == u.UserID(),
	}
}

func (d *Domain) userInfos() []types.DomainUserInfo {
	infos := make([]types.DomainUserInfo, 0, len(d.order))
	for _, id := range d.order {
		infos = append(infos, d.userInfo(d.users[id]))
	}
	return infos
}

func sameRow(a, b types.DomainLocationInfo) bool {
	return a.TableName == b.TableName && sameKeys(a.Keys, b.Keys)
}

// sameKeys compares keys by their text so that values of different integer
// types match.
func sameKeys(a, b []interface{}) bool {
	if len(a) == 0 || len(a) != len(b) {
		return false
	}
	for i := range a {
		if fmt.Sprint(a[i]) != fmt.Sprint(b[i]) {
			return false
		}
	}
	return true
}
