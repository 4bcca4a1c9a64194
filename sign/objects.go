package sign

import (
	"bytes"
	"fmt"
)

// xrefEntry records where one indirect object was written in the output
// buffer for a single incremental update. ID is the PDF object number,
// Offset its byte position from the start of the file.
type xrefEntry struct {
	ID     uint32
	Offset int64
}

// writeXref writes the cross-reference table or stream based on the PDF type.
func (context *SignContext) writeXref() error {
	context.NewXrefStart = int64(context.OutputBuffer.Buff.Len())

	switch context.PDFReader.XrefInformation.Type {
	case "table":
		return context.writeIncrXrefTable()
	case "stream":
		return context.writeXrefStream()
	default:
		return fmt.Errorf("unknown xref type: %s", context.PDFReader.XrefInformation.Type)
	}
}

// getLastObjectIDFromXref returns the highest object number already present
// in the document being signed, so new objects appended by this incremental
// update can be numbered above it without colliding with an existing one.
//
// The trailer's /Size entry is one greater than the highest object number in
// both classic xref tables and cross-reference streams, so it works for
// either xref flavor without needing to re-parse the raw xref bytes.
func (context *SignContext) getLastObjectIDFromXref() (uint32, error) {
	size := context.PDFReader.Trailer().Key("Size")
	if !size.IsNull() {
		if n := size.Int64(); n > 0 {
			return uint32(n - 1), nil
		}
	}

	if context.PDFReader.XrefInformation.ItemCount > 0 {
		return uint32(context.PDFReader.XrefInformation.ItemCount - 1), nil
	}

	return 0, fmt.Errorf("sign: unable to determine last object id from xref")
}

// addObject appends object as a new indirect object at the current end of
// the output buffer and records its offset as a new xref entry. It returns
// the freshly allocated object ID.
func (context *SignContext) addObject(object []byte) (uint32, error) {
	offset := int64(context.OutputBuffer.Buff.Len())

	context.lastXrefID++
	id := context.lastXrefID

	if _, err := fmt.Fprintf(context.OutputBuffer, "%d 0 obj\n%s\nendobj\n", id, bytes.TrimSpace(object)); err != nil {
		return 0, fmt.Errorf("failed to write object %d: %w", id, err)
	}

	context.newXrefEntries = append(context.newXrefEntries, xrefEntry{ID: id, Offset: offset})

	return id, nil
}

// updateObject rewrites an existing indirect object (one already present in
// an earlier revision of the document) at the current end of the output
// buffer, recording the write as an updated entry rather than a new one.
func (context *SignContext) updateObject(id uint32, object []byte) error {
	offset := int64(context.OutputBuffer.Buff.Len())

	if _, err := fmt.Fprintf(context.OutputBuffer, "%d 0 obj\n%s\nendobj\n", id, bytes.TrimSpace(object)); err != nil {
		return fmt.Errorf("failed to write updated object %d: %w", id, err)
	}

	context.updatedXrefEntries = append(context.updatedXrefEntries, xrefEntry{ID: id, Offset: offset})

	return nil
}

// addRawObject appends a pre-formatted indirect object (already wrapped as
// "id 0 obj ... endobj\n", such as one produced by ltv.Build) at the
// current end of the output buffer, registering it as a new xref entry
// under its own caller-assigned ID without re-wrapping or renumbering it.
func (context *SignContext) addRawObject(id uint32, body []byte) error {
	offset := int64(context.OutputBuffer.Buff.Len())

	if _, err := context.OutputBuffer.Write(body); err != nil {
		return fmt.Errorf("failed to write object %d: %w", id, err)
	}

	context.newXrefEntries = append(context.newXrefEntries, xrefEntry{ID: id, Offset: offset})

	return nil
}

// AddObject is the exported form of addObject, used by pre-sign callbacks
// (e.g. initials, DSS/VRI updates) that need to append extra indirect
// objects to the same incremental update as the signature itself.
func (context *SignContext) AddObject(object []byte) (uint32, error) {
	return context.addObject(object)
}

// UpdateObject is the exported form of updateObject.
func (context *SignContext) UpdateObject(id uint32, object []byte) error {
	return context.updateObject(id, object)
}
