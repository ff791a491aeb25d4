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

package mongo_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crema-team/crema/server/backend/database/mongo"
	"github.com/crema-team/crema/server/backend/database/testcases"
)

// setupTestClient dials the MongoDB of CREMA_TEST_MONGO_URI, skipping the
// test when it is not set.
func setupTestClient(t *testing.T) *mongo.Client {
	uri := os.Getenv("CREMA_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("CREMA_TEST_MONGO_URI is not set")
	}

	config := &mongo.Config{
		ConnectionTimeout: "5s",
		ConnectionURI:     uri,
		CremaDatabase:     "crema-test",
		PingTimeout:       "5s",
	}
	require.NoError(t, config.Validate())

	cli, err := mongo.Dial(config)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, cli.Close())
	})
	return cli
}

func TestClient(t *testing.T) {
	cli := setupTestClient(t)

	t.Run("CreateDataBaseInfo test", func(t *testing.T) {
		testcases.RunCreateDataBaseInfoTest(t, cli)
	})

	t.Run("FindDataBaseInfo test", func(t *testing.T) {
		testcases.RunFindDataBaseInfoTest(t, cli)
	})

	t.Run("EnsureDefaultDataBaseInfo test", func(t *testing.T) {
		testcases.RunEnsureDefaultDataBaseInfoTest(t, cli)
	})

	t.Run("ListAndDeleteDataBaseInfo test", func(t *testing.T) {
		testcases.RunListAndDeleteDataBaseInfoTest(t, cli)
	})
}
