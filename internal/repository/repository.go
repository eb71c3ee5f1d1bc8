// Package repository maps Airtable records onto marketplace domain types.
package repository

import (
	"context"
	"reflect"
	"strings"

	"github.com/linkupcampus/linkup/internal/airtable"
	"github.com/linkupcampus/linkup/internal/domain"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
)

// Client is the subset of the Airtable client the repositories use.
type Client interface {
	List(ctx context.Context, table string, opts airtable.ListOptions) ([]airtable.Record, error)
	Get(ctx context.Context, table, id string) (*airtable.Record, error)
	Create(ctx context.Context, table string, fields map[string]interface{}) (*airtable.Record, error)
	Update(ctx context.Context, table, id string, fields map[string]interface{}) (*airtable.Record, error)
	Delete(ctx context.Context, table, id string) error
}

var _ Client = (*airtable.Client)(nil)

// decodeFields decodes Airtable fields into out using mapstructure tags.
func decodeFields(fields map[string]interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       numericStringHook,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(fields)
}

var amountCleaner = strings.NewReplacer("₦", "", ",", "", " ", "")

// numericStringHook accepts amounts typed as text, e.g. "₦5,000".
func numericStringHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String {
		return data, nil
	}
	switch to.Kind() {
	case reflect.Float32, reflect.Float64, reflect.Int, reflect.Int64:
	default:
		return data, nil
	}
	s := amountCleaner.Replace(data.(string))
	if s == "" {
		return 0, nil
	}
	return cast.ToFloat64E(s)
}

// mapErr turns client errors into domain errors.
func mapErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if airtable.IsNotFound(err) {
		return domain.ErrNotFound(what + " not found")
	}
	return domain.ErrDependency(err, "airtable request failed")
}
