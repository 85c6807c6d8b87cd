package features

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Vector is an ordered set of named numeric slots.
type Vector struct {
	names  []string
	values []float64
}

// Feature is one named slot.
type Feature struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

func (v Vector) Len() int { return len(v.names) }

func (v Vector) Names() []string {
	return append([]string(nil), v.names...)
}

func (v Vector) Values() []float64 {
	return append([]float64(nil), v.values...)
}

func (v Vector) Get(name string) (float64, bool) {
	for i, n := range v.names {
		if n == name {
			return v.values[i], true
		}
	}
	return 0, false
}

// Map returns the slots keyed by name. Order is lost.
func (v Vector) Map() map[string]float64 {
	out := make(map[string]float64, len(v.names))
	for i, n := range v.names {
		out[n] = v.values[i]
	}
	return out
}

// Entries returns the slots in order.
func (v Vector) Entries() []Feature {
	out := make([]Feature, len(v.names))
	for i, n := range v.names {
		out[i] = Feature{Name: n, Value: v.values[i]}
	}
	return out
}

// Float32 returns the values narrowed for tensor input.
func (v Vector) Float32() []float32 {
	out := make([]float32, len(v.values))
	for i, x := range v.values {
		out[i] = float32(x)
	}
	return out
}

// Fingerprint is a hex sha256 over names and exact values.
func (v Vector) Fingerprint() string {
	h := sha256.New()
	for i, n := range v.names {
		h.Write([]byte(n))
		h.Write([]byte{'='})
		h.Write([]byte(strconv.FormatFloat(v.values[i], 'g', -1, 64)))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
