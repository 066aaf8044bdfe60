package generator

import (
	"bytes"
	"encoding/json"
)

// Function types emitted in DocItem.FunctionType.
const (
	FunctionStatic = "static"
	FunctionMethod = "method"
)

// Realms a function may be restricted to.
const (
	RealmServer = "Server"
	RealmClient = "Client"
	RealmPlugin = "Plugin"
)

// Source locates a documented symbol in the repository.
type Source struct {
	Line int    `json:"line" yaml:"line" validate:"gt=0"`
	Path string `json:"path" yaml:"path" validate:"required"`
}

// Param represents a documented function parameter
type Param struct {
	Name    string `json:"name" yaml:"name" validate:"required"`
	Desc    string `json:"desc" yaml:"desc"`
	LuaType string `json:"lua_type" yaml:"lua_type"`
}

// ReturnSpec represents a documented return value
type ReturnSpec struct {
	Desc    string `json:"desc" yaml:"desc"`
	LuaType string `json:"lua_type" yaml:"lua_type"`
}

// ErrorSpec represents an error a function may raise
type ErrorSpec struct {
	LuaType string `json:"lua_type" yaml:"lua_type"`
	Desc    string `json:"desc" yaml:"desc"`
}

// Deprecation marks a symbol as deprecated since a version.
type Deprecation struct {
	Version string `json:"version" yaml:"version"`
	Desc    string `json:"desc,omitempty" yaml:"desc,omitempty"`
}

// DocItem is one documented function or method.
type DocItem struct {
	Name         string       `json:"name" yaml:"name" validate:"required"`
	Desc         string       `json:"desc" yaml:"desc"`
	Params       []Param      `json:"params" yaml:"params" validate:"dive"`
	Returns      []ReturnSpec `json:"returns" yaml:"returns"`
	FunctionType string       `json:"function_type" yaml:"function_type" validate:"oneof=static method"`
	Tags         []string     `json:"tags,omitempty" yaml:"tags,omitempty"`
	Errors       []ErrorSpec  `json:"errors,omitempty" yaml:"errors,omitempty"`
	Yields       bool         `json:"yields,omitempty" yaml:"yields,omitempty"`
	Since        string       `json:"since,omitempty" yaml:"since,omitempty"`
	Deprecated   *Deprecation `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
	Private      bool         `json:"private,omitempty" yaml:"private,omitempty"`
	Unreleased   bool         `json:"unreleased,omitempty" yaml:"unreleased,omitempty"`
	Realm        []string     `json:"realm,omitempty" yaml:"realm,omitempty"`
	Source       Source       `json:"source" yaml:"source"`
}

// PropertyDoc is one documented class property.
type PropertyDoc struct {
	Name       string       `json:"name" yaml:"name" validate:"required"`
	Desc       string       `json:"desc" yaml:"desc"`
	LuaType    string       `json:"lua_type" yaml:"lua_type"`
	Tags       []string     `json:"tags,omitempty" yaml:"tags,omitempty"`
	Since      string       `json:"since,omitempty" yaml:"since,omitempty"`
	Deprecated *Deprecation `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
	Private    bool         `json:"private,omitempty" yaml:"private,omitempty"`
	Readonly   bool         `json:"readonly,omitempty" yaml:"readonly,omitempty"`
	Realm      []string     `json:"realm,omitempty" yaml:"realm,omitempty"`
	Source     Source       `json:"source" yaml:"source"`
}

// InterfaceField is one field of an @interface type.
type InterfaceField struct {
	Name    string `json:"name" yaml:"name" validate:"required"`
	LuaType string `json:"lua_type" yaml:"lua_type"`
	Desc    string `json:"desc" yaml:"desc"`
}

// TypeDef is a named type alias or interface.
type TypeDef struct {
	Name    string           `json:"name" yaml:"name" validate:"required"`
	Desc    string           `json:"desc" yaml:"desc"`
	LuaType string           `json:"lua_type,omitempty" yaml:"lua_type,omitempty"`
	Fields  []InterfaceField `json:"fields,omitempty" yaml:"fields,omitempty" validate:"dive"`
	Tags    []string         `json:"tags,omitempty" yaml:"tags,omitempty"`
	Private bool             `json:"private,omitempty" yaml:"private,omitempty"`
	Source  Source           `json:"source" yaml:"source"`
}

// ModuleDoc is the aggregate documentation record for one class.
type ModuleDoc struct {
	Functions  []DocItem     `json:"functions" yaml:"functions" validate:"dive"`
	Properties []PropertyDoc `json:"properties" yaml:"properties" validate:"dive"`
	Types      []TypeDef     `json:"types" yaml:"types" validate:"dive"`
	Name       string        `json:"name" yaml:"name" validate:"required"`
	Desc       string        `json:"desc" yaml:"desc"`
	Private    bool          `json:"private,omitempty" yaml:"private,omitempty"`
	Tags       []string      `json:"tags,omitempty" yaml:"tags,omitempty"`
	Source     Source        `json:"source" yaml:"source"`
}

// MarshalJSON keeps the collection keys present even when they are empty.
func (m ModuleDoc) MarshalJSON() ([]byte, error) {
	type moduleAlias ModuleDoc

	temp := moduleAlias(m)
	if temp.Functions == nil {
		temp.Functions = []DocItem{}
	}
	if temp.Properties == nil {
		temp.Properties = []PropertyDoc{}
	}
	if temp.Types == nil {
		temp.Types = []TypeDef{}
	}
	return marshalUnescaped(temp)
}

// MarshalJSON keeps params and returns present even when they are empty.
func (d DocItem) MarshalJSON() ([]byte, error) {
	type itemAlias DocItem

	temp := itemAlias(d)
	if temp.Params == nil {
		temp.Params = []Param{}
	}
	if temp.Returns == nil {
		temp.Returns = []ReturnSpec{}
	}
	return marshalUnescaped(temp)
}

// Normalize replaces nil collections with empty ones so that a record
// decoded from JSON compares equal to the record that produced it.
func (m *ModuleDoc) Normalize() {
	if m.Functions == nil {
		m.Functions = []DocItem{}
	}
	if m.Properties == nil {
		m.Properties = []PropertyDoc{}
	}
	if m.Types == nil {
		m.Types = []TypeDef{}
	}
	for i := range m.Functions {
		if m.Functions[i].Params == nil {
			m.Functions[i].Params = []Param{}
		}
		if m.Functions[i].Returns == nil {
			m.Functions[i].Returns = []ReturnSpec{}
		}
	}
}

// marshalUnescaped encodes v without HTML escaping so that type annotations
// such as Array<any> stay readable in emitted assets.
func marshalUnescaped(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
