package sign

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/digitorus/pdf"
	"github.com/govbr-pades/pades/ltv"
	"github.com/mattetti/filebuffer"
)

// EnableLTV appends a single incremental update to an already-signed PDF
// that embeds store's accumulated certificates, CRLs, OCSP responses and
// per-signature VRI entries as a document-level /DSS, then points the
// catalog at it. It performs no changes to any existing revision: the
// signed content and every prior signature's /Contents are untouched,
// exactly like adding another signature does.
//
// It reuses the same append-only xref/trailer writer the signing flow
// uses for its own incremental update, so the result is indistinguishable
// in structure from a normal signing revision, just with /DSS objects
// instead of a /Sig.
func EnableLTV(input io.ReadSeeker, output io.Writer, rdr *pdf.Reader, store *ltv.Store) error {
	context := &SignContext{
		InputFile:    input,
		PDFReader:    rdr,
		OutputBuffer: filebuffer.New([]byte{}),
	}

	lastObjectID, err := context.getLastObjectIDFromXref()
	if err != nil {
		return fmt.Errorf("ltv: failed to determine last object id: %w", err)
	}
	context.lastXrefID = lastObjectID

	if err := context.copyInputToOutput(); err != nil {
		return fmt.Errorf("ltv: failed to copy input to output: %w", err)
	}

	objects, err := ltv.Build(store, func() uint32 {
		context.lastXrefID++
		return context.lastXrefID
	})
	if err != nil {
		return fmt.Errorf("ltv: failed to build DSS objects: %w", err)
	}

	ids := make([]uint32, 0, len(objects.Bodies))
	for id := range objects.Bodies {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if err := context.addRawObject(id, objects.Bodies[id]); err != nil {
			return fmt.Errorf("ltv: failed to write DSS object %d: %w", id, err)
		}
	}

	root := context.PDFReader.Trailer().Key("Root")
	rootPtr := root.GetPtr()
	rootID := rootPtr.GetID()

	context.CatalogData.ObjectId = rootID
	context.CatalogData.RootString = strconv.Itoa(int(rootID)) + " " + strconv.Itoa(int(rootPtr.GetGen())) + " R"

	newCatalog := buildDSSCatalog(context, root, rootID, objects.DSSRef)
	if err := context.updateObject(rootID, newCatalog); err != nil {
		return fmt.Errorf("ltv: failed to update catalog with /DSS: %w", err)
	}

	if err := context.writeXref(); err != nil {
		return fmt.Errorf("ltv: failed to write xref: %w", err)
	}

	if err := context.writeTrailer(); err != nil {
		return fmt.Errorf("ltv: failed to write trailer: %w", err)
	}

	if _, err := context.OutputBuffer.Seek(0, 0); err != nil {
		return err
	}

	if _, err := output.Write(context.OutputBuffer.Buff.Bytes()); err != nil {
		return err
	}

	return nil
}

// buildDSSCatalog re-serializes every key already present in the document's
// catalog unchanged, then adds /DSS pointing at dssRef, so enabling LTV
// never disturbs AcroForm, Pages or any other existing catalog entry.
func buildDSSCatalog(context *SignContext, root pdf.Value, rootID uint32, dssRef uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("<<\n")
	for _, key := range root.Keys() {
		if key == "DSS" {
			continue
		}
		fmt.Fprintf(&buf, "  /%s ", key)
		context.serializeCatalogEntry(&buf, rootID, root.Key(key))
		buf.WriteString("\n")
	}
	fmt.Fprintf(&buf, "  /DSS %d 0 R\n", dssRef)
	buf.WriteString(">>\n")
	return buf.Bytes()
}
