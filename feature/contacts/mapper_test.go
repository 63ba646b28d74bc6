package contacts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"klaviyo-sync/core/klaviyo"
	"klaviyo-sync/core/reconcile"
)

func ptr(s string) *string { return &s }

func TestMapper_Names(t *testing.T) {
	tests := []struct {
		name      string
		rec       reconcile.Record
		wantFirst *string
		wantLast  *string
	}{
		{
			name:      "first and last name",
			rec:       reconcile.Record{"first_name": "Ann", "last_name": "Lee"},
			wantFirst: ptr("Ann"),
			wantLast:  ptr("Lee"),
		},
		{
			name:      "first_name wins over name",
			rec:       reconcile.Record{"first_name": "Ann", "last_name": "Lee", "name": "Bob Stone"},
			wantFirst: ptr("Ann"),
			wantLast:  ptr("Lee"),
		},
		{
			name:      "name split keeps the rest as last name",
			rec:       reconcile.Record{"name": "Jane Q Public"},
			wantFirst: ptr("Jane"),
			wantLast:  ptr("Q Public"),
		},
		{
			name:      "extra whitespace collapses",
			rec:       reconcile.Record{"name": "  Jane   Q\tPublic "},
			wantFirst: ptr("Jane"),
			wantLast:  ptr("Q Public"),
		},
		{
			name:      "single token has empty last name",
			rec:       reconcile.Record{"name": "Cher"},
			wantFirst: ptr("Cher"),
			wantLast:  ptr(""),
		},
		{
			name:      "first_name without last_name",
			rec:       reconcile.Record{"first_name": "Ann"},
			wantFirst: ptr("Ann"),
			wantLast:  ptr(""),
		},
		{
			name: "whitespace-only name is omitted",
			rec:  reconcile.Record{"name": " \t "},
		},
		{
			name: "no name at all",
			rec:  reconcile.Record{"email": "a@x.com"},
		},
	}

	m := NewMapper("", nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := m.Map(tt.rec).Attributes
			assert.Equal(t, tt.wantFirst, attrs.FirstName)
			assert.Equal(t, tt.wantLast, attrs.LastName)
		})
	}
}

func TestMapper_Phone(t *testing.T) {
	tests := []struct {
		name   string
		region string
		phone  any
		want   string
	}{
		{name: "international", phone: "+14155551234", want: "+14155551234"},
		{name: "international with formatting", phone: "+1 (415) 555-1234", want: "+14155551234"},
		{name: "not a number", phone: "not-a-number", want: ""},
		{name: "invalid number", phone: "+1 555", want: ""},
		{name: "national without region", phone: "(415) 555-1234", want: ""},
		{name: "national with region", region: "us", phone: "(415) 555-1234", want: "+14155551234"},
		{name: "empty", phone: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMapper(tt.region, nil)
			payload := m.Map(reconcile.Record{"email": "a@x.com", "phone": tt.phone})
			assert.Equal(t, tt.want, payload.Attributes.PhoneNumber)
			assert.Equal(t, "a@x.com", *payload.Attributes.Email)
		})
	}
}

func TestMapper_Location(t *testing.T) {
	m := NewMapper("", nil)

	t.Run("first address only", func(t *testing.T) {
		payload := m.Map(reconcile.Record{"addresses": []any{
			map[string]any{"line1": "1 Main St", "line2": nil, "city": "Springfield", "state": "IL", "postal_code": float64(62701), "country": "US"},
			map[string]any{"line1": "2 Other St"},
		}})
		require.NotNil(t, payload.Attributes.Location)
		assert.Equal(t, &klaviyo.Location{
			Address1: ptr("1 Main St"),
			City:     ptr("Springfield"),
			Region:   ptr("IL"),
			Zip:      ptr("62701"),
			Country:  ptr("US"),
		}, payload.Attributes.Location)
	})

	t.Run("empty list", func(t *testing.T) {
		payload := m.Map(reconcile.Record{"addresses": []any{}})
		assert.Nil(t, payload.Attributes.Location)
	})

	t.Run("absent", func(t *testing.T) {
		payload := m.Map(reconcile.Record{})
		assert.Nil(t, payload.Attributes.Location)
	})
}

func TestMapper_CustomFields(t *testing.T) {
	m := NewMapper("", nil)
	payload := m.Map(reconcile.Record{"custom_fields": []any{
		map[string]any{"name": "tier", "value": "gold"},
		map[string]any{"name": "score", "value": float64(7)},
		map[string]any{"name": "tier", "value": "platinum"},
		map[string]any{"value": "orphan"},
	}})

	assert.Equal(t, map[string]any{"tier": "platinum", "score": float64(7)}, payload.Attributes.Properties)
}

func TestMapper_Deterministic(t *testing.T) {
	m := NewMapper("", nil)
	rec := reconcile.Record{"email": "a@x.com", "name": "Ann Lee", "phone": "+14155551234"}
	assert.Equal(t, m.Map(rec), m.Map(rec))
	assert.Equal(t, klaviyo.ProfileType, m.Map(rec).Type)
	assert.Empty(t, m.Map(rec).ID)
}
