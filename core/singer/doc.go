// Package singer reads Singer-format message streams: one JSON object per
// line with a "type" of SCHEMA, RECORD or STATE.
package singer
