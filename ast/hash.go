package ast

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/merchantmoh-debug/ArkLang/errors"
)

// Program is the content-addressed envelope around a parsed module. The
// hash is a hex SHA-256 digest of the canonical JSON form of Content.
// It is always recomputed from Content, never taken on trust.
type Program struct {
	Hash    string `json:"hash"`
	Content *Block `json:"content"`
	Span    *Span  `json:"span,omitempty"`
}

// HashNode returns the hex SHA-256 digest of a node's canonical JSON
// serialization. Canonical form is obtained by round-tripping through a
// generic value, which sorts all object keys.
func HashNode(n Node) (string, error) {
	raw, err := json.Marshal(n)
	if err != nil {
		return "", err
	}
	return hashCanonical(raw)
}

func hashCanonical(raw []byte) (string, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", err
	}
	canon, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}

// NewProgram wraps a top-level block and stamps its content hash.
func NewProgram(content *Block, span *Span) (*Program, error) {
	h, err := HashNode(content)
	if err != nil {
		return nil, errors.Load("hash program", err)
	}
	return &Program{Hash: h, Content: content, Span: span}, nil
}

// Load decodes a serialized program, recomputes the content hash and
// rejects the envelope when the stored hash does not match.
func Load(data []byte) (*Program, error) {
	var shadow struct {
		Hash    string          `json:"hash"`
		Content json.RawMessage `json:"content"`
		Span    *Span           `json:"span"`
	}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return nil, errors.Load("decode program envelope", err)
	}
	if len(shadow.Content) == 0 {
		return nil, errors.InvalidInput(errors.PhaseLoad, "program envelope has no content")
	}

	got, err := hashCanonical(shadow.Content)
	if err != nil {
		return nil, errors.Load("canonicalize program content", err)
	}
	if got != shadow.Hash {
		return nil, errors.HashMismatch(shadow.Hash, got)
	}

	var content Block
	if err := json.Unmarshal(shadow.Content, &content); err != nil {
		return nil, errors.Load("decode program content", err)
	}
	return &Program{Hash: got, Content: &content, Span: shadow.Span}, nil
}

// Encode serializes the program envelope, refreshing the hash first so
// a mutated tree never ships a stale digest.
func (p *Program) Encode() ([]byte, error) {
	h, err := HashNode(p.Content)
	if err != nil {
		return nil, errors.Load("hash program", err)
	}
	p.Hash = h
	return json.Marshal(p)
}
