// Package mrz decodes the Machine Readable Zone of travel documents (ICAO 9303).
//
// The decoder works on text lines, not images. Lines are uppercased and
// right-padded with the filler character before fields are sliced from fixed
// column ranges, so OCR truncation never shifts a field. Supported layouts:
//   - TD3 (passports): 2 lines x 44 characters
//   - TD1 (ID cards): 3 lines x 30 characters
//
// Decoding never fails as a whole. A Record is always produced and
// field-local problems (for example an unreadable date) are returned as a
// joined error next to it.
//
// Everything in this package is stateless and safe for concurrent use.
package mrz
