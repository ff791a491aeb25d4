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
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/crema-team/crema/api/types"
	"github.com/crema-team/crema/pkg/dispatcher"
	"github.com/crema-team/crema/server/domain"
)

// BeginTransaction backs up the logs of every live domain of the given
// database. A database has at most one transaction.
func (c *Context) BeginTransaction(ctx context.Context, auth domain.Authentication, databaseID types.ID) error {
	if err := auth.ValidateExpired(); err != nil {
		return err
	}
	if !auth.Authority().CanWrite() {
		return fmt.Errorf("begin transaction of %s by %s: %w", databaseID, auth.UserID(), domain.ErrReadOnlyAccess)
	}

	return c.dispatcher.Invoke(ctx, func() error {
		if _, ok := c.tree.databases[databaseID]; !ok {
			return fmt.Errorf("%s: %w", databaseID, ErrDataBaseNotFound)
		}

		dir := c.transactionPath(databaseID)
		if _, err := os.Stat(dir); err == nil {
			return fmt.Errorf("%s: %w", databaseID, ErrTransactionAlreadyExists)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("stat %s: %w", dir, err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}

		domains, err := c.collection.List(ctx, databaseID)
		if err != nil {
			return err
		}
		for _, d := range domains {
			if err := d.Backup(ctx, filepath.Join(dir, d.ID().String())); err != nil {
				if rerr := os.RemoveAll(dir); rerr != nil {
					c.log.Warnf("remove %s: %v", dir, rerr)
				}
				return fmt.Errorf("backup %s: %w", d, err)
			}
		}

		c.log.Infof("transaction of %s begun with %d domains", databaseID, len(domains))
		return nil
	})
}

// EndTransaction commits the transaction of the given database by dropping
// its backup.
func (c *Context) EndTransaction(ctx context.Context, databaseID types.ID) error {
	return c.dispatcher.Invoke(ctx, func() error {
		dir, err := c.existingTransaction(databaseID)
		if err != nil {
			return err
		}
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("remove %s: %w", dir, err)
		}

		c.log.Infof("transaction of %s ended", databaseID)
		return nil
	})
}

// CancelTransaction rolls the domains of the given database back to the
// backup taken by BeginTransaction. The live domains are removed as canceled
// and the backed up logs are restored in their place.
func (c *Context) CancelTransaction(ctx context.Context, databaseID types.ID) (RestoreResult, error) {
	return dispatcher.InvokeValue(ctx, c.dispatcher, func() (RestoreResult, error) {
		dir, err := c.existingTransaction(databaseID)
		if err != nil {
			return RestoreResult{}, err
		}
		if _, ok := c.tree.databases[databaseID]; !ok {
			return RestoreResult{}, fmt.Errorf("%s: %w", databaseID, ErrDataBaseNotFound)
		}

		if _, err := c.removeDomains(ctx, databaseID, true); err != nil {
			return RestoreResult{}, err
		}

		logs := filepath.Join(c.options.DomainsPath, databaseID.String())
		if err := os.RemoveAll(logs); err != nil {
			return RestoreResult{}, fmt.Errorf("remove %s: %w", logs, err)
		}
		if err := moveDir(dir, logs); err != nil {
			return RestoreResult{}, err
		}

		result, err := c.restoreDataBase(ctx, databaseID)
		if err != nil {
			return result, err
		}
		c.log.Infof("transaction of %s canceled: %s", databaseID, result)
		return result, nil
	})
}

// IsTransactionBegun returns whether the given database has a transaction.
func (c *Context) IsTransactionBegun(ctx context.Context, databaseID types.ID) (bool, error) {
	return dispatcher.InvokeValue(ctx, c.dispatcher, func() (bool, error) {
		_, err := c.existingTransaction(databaseID)
		if errors.Is(err, ErrTransactionNotFound) {
			return false, nil
		}
		return err == nil, err
	})
}

func (c *Context) transactionPath(databaseID types.ID) string {
	return filepath.Join(c.options.TransactionsPath, databaseID.String())
}

func (c *Context) existingTransaction(databaseID types.ID) (string, error) {
	dir := c.transactionPath(databaseID)
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("%s: %w", databaseID, ErrTransactionNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s: %w", databaseID, ErrTransactionNotFound)
	}
	return dir, nil
}

// moveDir renames src to dst, copying when they are on different devices.
func moveDir(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(dst), err)
	}

	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return fmt.Errorf("rename %s: %w", src, err)
	}

	if err := copyDir(src, dst); err != nil {
		return err
	}
	if err := os.RemoveAll(src); err != nil {
		return fmt.Errorf("remove %s: %w", src, err)
	}
	return nil
}

func copyDir(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer func() {
		_ = in.Close()
	}()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Sync()
}
