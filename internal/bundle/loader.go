// Package bundle writes ModuleDoc records as content-addressed static assets
// that a documentation front end loads by id, and reads them back.
package bundle

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/example/luadoc-gen/internal/generator"
)

// DefaultNamespace is the chunk namespace used by the front end loader.
const DefaultNamespace = "docs"

// ErrMalformedAsset is returned when an asset is not in loader format.
var ErrMalformedAsset = errors.New("malformed documentation asset")

// Asset is one decoded loader file.
type Asset struct {
	Namespace string
	Chunk     int
	Module    int
	Doc       generator.ModuleDoc
}

// EncodeAsset wraps a ModuleDoc in the loader call the front end expects:
//
//	"use strict";(self.webpackChunkdocs=self.webpackChunkdocs||[]).push([[775],{28404:e=>{e.exports=JSON.parse('{...}')}}]);
func EncodeAsset(namespace string, chunk, module int, doc generator.ModuleDoc) ([]byte, error) {
	var payload bytes.Buffer
	enc := json.NewEncoder(&payload)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode %s: %w", doc.Name, err)
	}
	body := bytes.TrimSuffix(payload.Bytes(), []byte("\n"))

	global := "self.webpackChunk" + namespace
	var out bytes.Buffer
	fmt.Fprintf(&out, `"use strict";(%s=%s||[]).push([[%d],{%d:e=>{e.exports=JSON.parse('`, global, global, chunk, module)
	out.WriteString(escapeJSString(body))
	out.WriteString(`')}}]);`)
	return out.Bytes(), nil
}

// DecodeAsset parses a loader file produced by EncodeAsset.
func DecodeAsset(data []byte) (Asset, error) {
	var a Asset
	s := string(bytes.TrimSpace(data))

	const prefix = `"use strict";(self.webpackChunk`
	rest, ok := strings.CutPrefix(s, prefix)
	if !ok {
		return a, fmt.Errorf("%w: missing loader prefix", ErrMalformedAsset)
	}
	ns, rest, ok := strings.Cut(rest, "=")
	if !ok {
		return a, fmt.Errorf("%w: missing namespace", ErrMalformedAsset)
	}
	a.Namespace = ns

	_, rest, ok = strings.Cut(rest, ".push([[")
	if !ok {
		return a, fmt.Errorf("%w: missing chunk id", ErrMalformedAsset)
	}
	chunk, rest, ok := strings.Cut(rest, "],{")
	if !ok {
		return a, fmt.Errorf("%w: missing module table", ErrMalformedAsset)
	}
	module, rest, ok := strings.Cut(rest, ":")
	if !ok {
		return a, fmt.Errorf("%w: missing module id", ErrMalformedAsset)
	}
	var err error
	if a.Chunk, err = strconv.Atoi(chunk); err != nil {
		return a, fmt.Errorf("%w: chunk id %q", ErrMalformedAsset, chunk)
	}
	if a.Module, err = strconv.Atoi(module); err != nil {
		return a, fmt.Errorf("%w: module id %q", ErrMalformedAsset, module)
	}

	_, rest, ok = strings.Cut(rest, "JSON.parse('")
	if !ok {
		return a, fmt.Errorf("%w: missing JSON payload", ErrMalformedAsset)
	}
	literal, ok := strings.CutSuffix(rest, "')}}]);")
	if !ok {
		return a, fmt.Errorf("%w: unterminated payload", ErrMalformedAsset)
	}

	if err := json.Unmarshal([]byte(unescapeJSString(literal)), &a.Doc); err != nil {
		return a, fmt.Errorf("%w: %v", ErrMalformedAsset, err)
	}
	a.Doc.Normalize()
	return a, nil
}

// escapeJSString escapes text for a single-quoted JavaScript string literal.
// Compact JSON has no raw line breaks, so only backslash and quote need care.
func escapeJSString(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b) + len(b)/16)
	for _, c := range b {
		switch c {
		case '\\':
			sb.WriteString(`\\`)
		case '\'':
			sb.WriteString(`\'`)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

func unescapeJSString(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			sb.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		default:
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}
