package validation

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateUTF8(t *testing.T) {
	assert.Nil(t, ValidateUTF8("field", "Hello, 世界"))
	assert.Nil(t, ValidateUTF8("field", ""))

	err := ValidateUTF8("content", string([]byte{0xff, 0xfe}))
	require.NotNil(t, err)
	assert.Equal(t, "content", err.Field)
}

func TestValidateNoNullBytes(t *testing.T) {
	assert.Nil(t, ValidateNoNullBytes("field", "hello"))

	err := ValidateNoNullBytes("content", "hello\x00world")
	require.NotNil(t, err)
	assert.Equal(t, "must not contain null bytes", err.Message)
}

func TestValidateRequired(t *testing.T) {
	tests := []struct {
		name  string
		value string
		ok    bool
	}{
		{"value", "x", true},
		{"empty", "", false},
		{"spaces", "   ", false},
		{"tabs and newlines", "\t\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequired("id", tt.value)
			assert.Equal(t, tt.ok, err == nil)
		})
	}
}

func TestValidateMaxItems(t *testing.T) {
	assert.Nil(t, ValidateMaxItems("changes.tags", 10, 10))
	assert.Nil(t, ValidateMaxItems("changes.tags", 10, 0))

	err := ValidateMaxItems("changes.tags", 11, 10)
	require.NotNil(t, err)
	assert.Equal(t, "exceeds maximum of 10 records", err.Message)
}

func TestCollector(t *testing.T) {
	var c Collector
	assert.False(t, c.HasErrors())
	assert.NoError(t, c.Err())

	c.Add(nil)
	c.Add(ValidateRequired("a", ""))
	c.Merge(Errors{{Field: "b", Message: "is invalid"}})
	c.Merge(errors.New("boom"))
	c.Merge(nil)

	require.True(t, c.HasErrors())
	assert.Len(t, c.Errors(), 3)
	assert.Equal(t, "request", c.Errors()[2].Field)

	var errs Errors
	require.ErrorAs(t, c.Err(), &errs)
	assert.Contains(t, errs.Error(), "a is required")
}

type item struct {
	ID   string `json:"itemid" validate:"notblank,max=8"`
	Body string `json:"body" validate:"text"`
}

type payload struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,max=4"`
	Count int     `json:"count" validate:"gte=0,lte=10"`
	Items []item  `json:"items" validate:"dive"`
}

func TestValidator_Struct_Valid(t *testing.T) {
	v := New()
	name := "ok"
	err := v.Struct(payload{Name: &name, Items: []item{{ID: "a", Body: "fine"}}})
	assert.NoError(t, err)

	// Nil optional pointers are skipped
	assert.NoError(t, v.Struct(payload{}))
}

func TestValidator_Struct_ReportsJSONPaths(t *testing.T) {
	v := New()
	name := "too long"

	err := v.Struct(payload{
		Name:  &name,
		Count: -1,
		Items: []item{
			{ID: "good", Body: "x"},
			{ID: " ", Body: "bad\x00"},
		},
	})

	var errs Errors
	require.ErrorAs(t, err, &errs)

	byField := map[string]string{}
	for _, e := range errs {
		byField[e.Field] = e.Message
	}
	assert.Equal(t, "exceeds maximum length of 4 characters", byField["name"])
	assert.Equal(t, "must be greater than or equal to 0", byField["count"])
	assert.Equal(t, "is required", byField["items[1].itemid"])
	assert.Equal(t, "must be valid UTF-8 without null bytes", byField["items[1].body"])
}

func TestValidator_Struct_UpperBound(t *testing.T) {
	var errs Errors
	require.ErrorAs(t, New().Struct(payload{Count: 11}), &errs)
	require.Len(t, errs, 1)
	assert.Equal(t, "count", errs[0].Field)
	assert.Equal(t, "must be less than or equal to 10", errs[0].Message)
}

func TestMustRegister_PanicsOnBadTag(t *testing.T) {
	v := validator.New()
	assert.Panics(t, func() {
		mustRegister(v, "", func(validator.FieldLevel) bool { return true })
	})
	assert.NotPanics(t, func() {
		mustRegister(v, "always", func(validator.FieldLevel) bool { return true })
	})
}
