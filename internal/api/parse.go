package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"github.com/go-playground/validator/v10"
	"reflect"
	"strings"
)

var ErrMalformedRequest = errors.New("request does not match protocol schema")

type Parser struct {
	validate *validator.Validate
}

// NewParser makes validator report fields by their json names.
func NewParser(v *validator.Validate) *Parser {
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Parser{validate: v}
}

// Parse decodes a raw payload into a Request. Fields outside the schema are
// ignored, missing required fields and type mismatches are not.
func (p *Parser) Parse(raw []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}

	if err := p.validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}

	return &req, nil
}
