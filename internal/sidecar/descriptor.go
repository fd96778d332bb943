// Package sidecar parses the JSON metadata file paired with each raw heap
// dump: the heap's address range, pointer size, the addresses of special
// structures, and the ground-truth key entries used by the annotator.
package sidecar

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/scigolib/heapkey/internal/utils"
)

// Address unmarshals either a JSON string (hex, optionally "0x"-prefixed,
// always big-endian digit order) or a JSON number into a uint64.
type Address uint64

// UnmarshalJSON implements json.Unmarshaler for Address.
func (a *Address) UnmarshalJSON(data []byte) error {
	var asNumber uint64
	if err := json.Unmarshal(data, &asNumber); err == nil {
		*a = Address(asNumber)
		return nil
	}

	var asString string
	if err := json.Unmarshal(data, &asString); err != nil {
		return fmt.Errorf("sidecar: address is neither a number nor a string: %s", data)
	}

	s := strings.TrimSpace(asString)
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return fmt.Errorf("sidecar: invalid hex address %q: %w", asString, err)
	}
	*a = Address(v)
	return nil
}

// KeyEntry is one ground-truth key record from the sidecar's key map.
type KeyEntry struct {
	Addr uint64
	Name string
	Len  int
	Key  []byte
}

// Descriptor is the fully parsed sidecar metadata for one heap dump.
type Descriptor struct {
	HeapStart       uint64
	PointerByteSize int

	HasSshStruct     bool
	AddrSshStruct    uint64
	HasSessionState  bool
	AddrSessionState uint64

	Keys map[uint64]KeyEntry
}

// rawKeyEntry mirrors one entry of the sidecar's key map as it appears on
// disk, before address/key decoding.
type rawKeyEntry struct {
	Name string `json:"name"`
	Len  int    `json:"len"`
	Key  string `json:"key"`
}

// rawDescriptor mirrors the sidecar JSON document as it appears on disk.
type rawDescriptor struct {
	HeapStart        Address                `json:"HEAP_START"`
	PointerByteSize  int                    `json:"pointer_byte_size"`
	AddrSshStruct    *Address               `json:"addr_ssh_struct"`
	AddrSessionState *Address               `json:"addr_session_state"`
	Keys             map[string]rawKeyEntry `json:"keys"`
}

// requiredKeys names the sidecar's top-level fields that must be present,
// in the order they are checked.
var requiredKeys = []string{"HEAP_START", "pointer_byte_size", "addr_ssh_struct", "addr_session_state"}

// Parse decodes raw sidecar JSON into a Descriptor. It fails with a
// KindInputMalformed error naming the first missing required key.
func Parse(data []byte) (*Descriptor, error) {
	var generic map[string]json.RawMessage
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, utils.Wrap(utils.KindInputMalformed, "sidecar: invalid JSON", err)
	}

	for _, key := range requiredKeys {
		if _, ok := generic[key]; !ok {
			return nil, utils.New(utils.KindInputMalformed, fmt.Sprintf("sidecar: missing required key %q", key))
		}
	}

	// addr_ssh_struct/addr_session_state are anchor addresses: a present-but-null
	// value is a malformed sidecar, just as an omitted key is (requiredKeys
	// already rejected that case above).
	for _, key := range []string{"addr_ssh_struct", "addr_session_state"} {
		if isJSONNull(generic[key]) {
			return nil, utils.New(utils.KindInputMalformed, fmt.Sprintf("sidecar: key %q is present but null", key))
		}
	}

	var raw rawDescriptor
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, utils.Wrap(utils.KindInputMalformed, "sidecar: malformed descriptor", err)
	}

	desc := &Descriptor{
		HeapStart:       uint64(raw.HeapStart),
		PointerByteSize: raw.PointerByteSize,
		Keys:            make(map[uint64]KeyEntry, len(raw.Keys)),
	}

	if raw.AddrSshStruct != nil {
		desc.HasSshStruct = true
		desc.AddrSshStruct = uint64(*raw.AddrSshStruct)
	}
	if raw.AddrSessionState != nil {
		desc.HasSessionState = true
		desc.AddrSessionState = uint64(*raw.AddrSessionState)
	}

	for addrStr, entry := range raw.Keys {
		addr, err := parseKeyAddr(addrStr)
		if err != nil {
			return nil, utils.Wrap(utils.KindInputMalformed, "sidecar: malformed key address", err)
		}
		keyBytes, err := decodeKeyBytes(entry.Key)
		if err != nil {
			return nil, utils.Wrap(utils.KindInputMalformed, fmt.Sprintf("sidecar: key %q", addrStr), err)
		}
		desc.Keys[addr] = KeyEntry{Addr: addr, Name: entry.Name, Len: entry.Len, Key: keyBytes}
	}

	return desc, nil
}

// isJSONNull reports whether a raw JSON value is the literal null token.
func isJSONNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

// parseKeyAddr parses a key map's string address the same way Address does,
// since JSON object keys are always strings regardless of the schema used
// for top-level address fields.
func parseKeyAddr(s string) (uint64, error) {
	var addr Address
	quoted, err := json.Marshal(s)
	if err != nil {
		return 0, err
	}
	if err := addr.UnmarshalJSON(quoted); err != nil {
		return 0, err
	}
	return uint64(addr), nil
}

// decodeKeyBytes accepts either a hex string or a base64 string for a key's
// raw bytes, trying hex first since ground-truth fixtures in this domain are
// overwhelmingly hex-encoded.
func decodeKeyBytes(s string) ([]byte, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if b, err := hex.DecodeString(trimmed); err == nil {
		return b, nil
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("sidecar: key is neither valid hex nor base64: %w", err)
	}
	return b, nil
}

// SortedKeyAddrs returns the descriptor's key addresses in ascending order,
// for deterministic iteration during annotation.
func (d *Descriptor) SortedKeyAddrs() []uint64 {
	addrs := make([]uint64, 0, len(d.Keys))
	for addr := range d.Keys {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}
