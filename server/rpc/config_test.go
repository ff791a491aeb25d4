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

package rpc_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/crema-team/crema/server/rpc"
)

func TestConfig(t *testing.T) {
	validConf := func() rpc.Config {
		return rpc.Config{
			Port:                  11101,
			MaxConnectionAge:      "50s",
			MaxConnectionAgeGrace: "10s",
		}
	}

	t.Run("validate test", func(t *testing.T) {
		conf := validConf()
		assert.NoError(t, conf.Validate())
		assert.Equal(t, 50*time.Second, conf.ParseMaxConnectionAge())
		assert.Equal(t, 10*time.Second, conf.ParseMaxConnectionAgeGrace())

		conf1 := validConf()
		conf1.Port = -1
		assert.ErrorIs(t, conf1.Validate(), rpc.ErrInvalidRPCPort)

		conf2 := validConf()
		conf2.CertFile = "noSuchCertFile"
		assert.ErrorIs(t, conf2.Validate(), rpc.ErrInvalidCertFile)

		conf3 := validConf()
		conf3.KeyFile = "noSuchKeyFile"
		assert.ErrorIs(t, conf3.Validate(), rpc.ErrInvalidKeyFile)

		conf4 := validConf()
		conf4.MaxConnectionAge = "hour"
		assert.ErrorIs(t, conf4.Validate(), rpc.ErrInvalidMaxConnectionAge)

		conf5 := validConf()
		conf5.MaxConnectionAgeGrace = "minute"
		assert.ErrorIs(t, conf5.Validate(), rpc.ErrInvalidMaxConnectionAgeGrace)
	})
}
