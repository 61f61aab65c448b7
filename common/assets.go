package common

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Assets is a mapping asset key -> Asset that keeps the insertion order.
// The order of the JSON document is kept when decoding.
type Assets struct {
	keys []string
	m    map[string]*Asset
}

// NewAssets creates an Assets from a list of key/asset pairs
func NewAssets(pairs ...KeyAsset) Assets {
	var a Assets
	for _, p := range pairs {
		a.Set(p.Key, p.Asset)
	}
	return a
}

// KeyAsset is a key/asset pair
type KeyAsset struct {
	Key   string
	Asset *Asset
}

// Set adds or replaces the asset. A new key is appended at the end.
func (a *Assets) Set(key string, asset *Asset) {
	if a.m == nil {
		a.m = map[string]*Asset{}
	}
	if _, ok := a.m[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.m[key] = asset
}

// Get returns the asset with the given key
func (a Assets) Get(key string) (*Asset, bool) {
	asset, ok := a.m[key]
	return asset, ok
}

// Delete removes the asset
func (a *Assets) Delete(key string) {
	if _, ok := a.m[key]; !ok {
		return
	}
	delete(a.m, key)
	for i, k := range a.keys {
		if k == key {
			a.keys = append(a.keys[:i:i], a.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the asset keys in order
func (a Assets) Keys() []string {
	return append([]string(nil), a.keys...)
}

// Len returns the number of assets
func (a Assets) Len() int {
	return len(a.keys)
}

// Pairs returns the key/asset pairs in order
func (a Assets) Pairs() []KeyAsset {
	pairs := make([]KeyAsset, len(a.keys))
	for i, k := range a.keys {
		pairs[i] = KeyAsset{Key: k, Asset: a.m[k]}
	}
	return pairs
}

// Clone returns a deep copy of the assets
func (a Assets) Clone() Assets {
	var c Assets
	for _, k := range a.keys {
		if a.m[k] == nil {
			c.Set(k, nil)
			continue
		}
		asset := *a.m[k]
		c.Set(k, &asset)
	}
	return c
}

// MarshalJSON implements json.Marshaler
func (a Assets) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range a.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(a.m[k])
		if err != nil {
			return nil, fmt.Errorf("asset %s: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (a *Assets) UnmarshalJSON(b []byte) error {
	*a = Assets{}
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("assets: expecting an object")
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("assets: expecting a key")
		}
		var asset *Asset
		if err := dec.Decode(&asset); err != nil {
			return fmt.Errorf("asset %s: %w", key, err)
		}
		a.Set(key, asset)
	}
	_, err = dec.Token()
	return err
}
