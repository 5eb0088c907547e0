// Package cos provides common low-level types and utilities shared across
// chronomesh packages.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package cos

import (
	"github.com/teris-io/shortid"
)

// Alphabet for generating ids similar to shortid.DEFAULT_ABC, used for
// generated package ids.
const uuidABC = "-5nZJDft6LuzsjGNpPwY7rQa39vehq4i1cV2FROo8yHSlC0BUEdWbIxMmTgKXAk_"

var sid *shortid.Shortid

func InitShortID(seed uint64) {
	sid = shortid.MustNew(4 /*worker*/, uuidABC, seed)
}

// GenUUID returns a short, locally-unique id; the scenario runner uses it
// as the package_id of a step that doesn't supply one.
func GenUUID() string {
	if sid == nil {
		InitShortID(1)
	}
	return sid.MustGenerate()
}
