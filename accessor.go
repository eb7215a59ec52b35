package mdict

import "encoding/json"

// Accessor is a serializable summary of an opened dictionary, suitable for
// handing to a remote worker that will reopen the file itself rather than
// share the live *Mdict (e.g. across a process boundary).
type Accessor struct {
	Filepath          string `json:"filepath"`
	IsKeyIndexEncrypted bool `json:"is_key_index_encrypted"`
	IsMDD             bool   `json:"is_mdd"`
	IsUTF16           bool   `json:"is_utf_16"`
}

// NewAccessor summarizes an open dictionary.
func NewAccessor(m *Mdict) *Accessor {
	return &Accessor{
		Filepath:            m.path,
		IsKeyIndexEncrypted: m.cfg.encryptFlags&encryptKeyIdx != 0,
		IsMDD:               m.isMDD,
		IsUTF16:             m.cfg.encoding == EncodingUTF16,
	}
}

// NewAccessorFromJSON decodes an Accessor previously produced by Serialize.
func NewAccessorFromJSON(data []byte) (*Accessor, error) {
	a := new(Accessor)
	if err := json.Unmarshal(data, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Serialize encodes the Accessor as JSON.
func (a *Accessor) Serialize() ([]byte, error) {
	return json.Marshal(a)
}

// RetrieveByKey reopens the dictionary described by a and looks up key. It
// is meant for callers that only hold a serialized Accessor, not a live
// *Mdict; callers that already have one should call Mdict.Lookup directly.
func (a *Accessor) RetrieveByKey(key string) (string, error) {
	m, err := Open(a.Filepath, OpenOptions{})
	if err != nil {
		return "", err
	}
	defer m.Close()
	return m.Lookup(key)
}
