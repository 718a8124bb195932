// SPDX-License-Identifier: MPL-2.0

package modpack

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	// IndexMember is the metadata document inside an archive.
	IndexMember = "modrinth.index.json"
	// IconMember is the pack icon inside an archive.
	IconMember = "overrides/icon.png"
	// IconName is the file name the icon is extracted to.
	IconName = "icon.png"

	// HashField receives the archive's SHA-1.
	HashField = "sha1"
	// IDField receives the instance name.
	IDField = "id"

	indexIndent = "  "
)

var (
	// ErrMalformedIndex is returned when the index document is not valid JSON.
	ErrMalformedIndex = errors.New("malformed index JSON")
	// ErrNotAnObject is returned when the index document is valid JSON but
	// not an object.
	ErrNotAnObject = errors.New("index JSON is not an object")
)

// annotateIndex sets the hash and id fields on the JSON object in data and
// returns it indented by two spaces, with no trailing newline. Existing keys
// keep their position, other values are not re-encoded (large numbers
// survive), and new keys are appended hash first.
func annotateIndex(data []byte, sha1Hex, id string) ([]byte, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrMalformedIndex
	}
	if !gjson.ParseBytes(data).IsObject() {
		return nil, ErrNotAnObject
	}

	out, err := sjson.SetBytes(data, HashField, sha1Hex)
	if err != nil {
		return nil, fmt.Errorf("set %s: %w", HashField, err)
	}
	out, err = sjson.SetBytes(out, IDField, id)
	if err != nil {
		return nil, fmt.Errorf("set %s: %w", IDField, err)
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, out); err != nil {
		return nil, fmt.Errorf("compact index: %w", err)
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, compact.Bytes(), "", indexIndent); err != nil {
		return nil, fmt.Errorf("indent index: %w", err)
	}
	return pretty.Bytes(), nil
}
