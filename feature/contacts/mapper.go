package contacts

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
	"go.uber.org/zap"

	"klaviyo-sync/core/klaviyo"
	"klaviyo-sync/core/logger"
	"klaviyo-sync/core/reconcile"
	"klaviyo-sync/core/utils"
)

// Mapper converts source records into profile payloads.
type Mapper struct {
	region string
	logger *zap.Logger
}

// NewMapper creates a mapper. defaultRegion is the ISO region used for phones
// written without a country prefix; empty accepts international numbers only.
func NewMapper(defaultRegion string, log *zap.Logger) *Mapper {
	return &Mapper{region: strings.ToUpper(defaultRegion), logger: logger.OrNop(log)}
}

// Map builds the payload for rec. It never fails: unusable phone numbers are
// dropped and everything else is copied as given.
func (m *Mapper) Map(rec reconcile.Record) klaviyo.ProfilePayload {
	attrs := klaviyo.ProfileAttributes{}

	if rec.Has("email") {
		attrs.Email = utils.ToStringPtr(rec["email"])
	}

	attrs.FirstName, attrs.LastName = splitName(rec)

	if rec.Has("phone") {
		if phone, ok := m.normalizePhone(rec.String("phone")); ok {
			attrs.PhoneNumber = phone
		}
	}

	attrs.Location = mapLocation(rec.List("addresses"))

	if rec.Has("custom_fields") {
		attrs.Properties = foldCustomFields(rec.List("custom_fields"))
	}

	return klaviyo.ProfilePayload{Type: klaviyo.ProfileType, Attributes: attrs}
}

// splitName applies first_name/last_name when present, else splits name on
// whitespace into a first token and the rest. A blank name is omitted.
func splitName(rec reconcile.Record) (*string, *string) {
	if rec.Has("first_name") {
		first := rec.String("first_name")
		last := rec.String("last_name")
		return &first, &last
	}
	if !rec.Has("name") {
		return nil, nil
	}

	parts := strings.Fields(rec.String("name"))
	if len(parts) == 0 {
		return nil, nil
	}
	first := parts[0]
	last := strings.Join(parts[1:], " ")
	return &first, &last
}

func (m *Mapper) normalizePhone(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	num, err := phonenumbers.Parse(raw, m.region)
	if err != nil {
		m.logger.Debug("Dropping unparseable phone", zap.Error(err))
		return "", false
	}
	if !phonenumbers.IsValidNumber(num) {
		m.logger.Debug("Dropping invalid phone")
		return "", false
	}
	return phonenumbers.Format(num, phonenumbers.E164), true
}

// mapLocation uses the first address only.
func mapLocation(addresses []any) *klaviyo.Location {
	if len(addresses) == 0 {
		return nil
	}
	addr, ok := addresses[0].(map[string]any)
	if !ok {
		return nil
	}
	return &klaviyo.Location{
		Address1: utils.ToStringPtr(addr["line1"]),
		Address2: utils.ToStringPtr(addr["line2"]),
		City:     utils.ToStringPtr(addr["city"]),
		Region:   utils.ToStringPtr(addr["state"]),
		Zip:      utils.ToStringPtr(addr["postal_code"]),
		Country:  utils.ToStringPtr(addr["country"]),
	}
}

// foldCustomFields turns [{name, value}] into a map; later names win.
func foldCustomFields(fields []any) map[string]any {
	props := make(map[string]any, len(fields))
	for _, f := range fields {
		field, ok := f.(map[string]any)
		if !ok {
			continue
		}
		name := utils.ToString(field["name"])
		if name == "" {
			continue
		}
		props[name] = field["value"]
	}
	return props
}
