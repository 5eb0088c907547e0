// Package meta holds the wire/value types shared by clock, node, detector,
// snapshot and orchestrator.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package meta

import jsoniter "github.com/json-iterator/go"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Value is a schemaless payload: the source system carries arbitrary
// key-value documents as package payloads, so a concrete struct would lose
// information a caller attached. Value wraps whatever jsoniter decoded
// (nil, bool, float64, string, map[string]any, []any) and round-trips
// it losslessly.
type Value struct {
	raw any
}

func NewValue(v any) Value { return Value{raw: v} }

func (v Value) Raw() any { return v.raw }

func (v Value) MarshalJSON() ([]byte, error) {
	if v.raw == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v.raw)
}

func (v *Value) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	v.raw = raw
	return nil
}
