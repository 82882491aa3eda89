/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

//go:build nokeyring

package config

import "errors"

// Headless builds (CI, containers) have no OS keyring service; the token can
// still come from the environment.

var errNoKeyring = errors.New("keyring disabled in this build")

var (
	keyringGet    = func(service, key string) (string, error) { return "", errNoKeyring }
	keyringSet    = func(service, key, value string) error { return errNoKeyring }
	keyringDelete = func(service, key string) error { return errNoKeyring }
)
