package ltv

import (
	"bytes"
	"fmt"
	"sort"
)

// ObjectIDAllocator hands out the next free indirect object number during
// an incremental update. Orchestration wires this to the same counter
// sign.SignContext uses for its own appended objects so /DSS's objects
// land contiguously after the signature dictionary's.
type ObjectIDAllocator func() uint32

// Objects is the result of building a /DSS for an incremental update: the
// serialized indirect objects, keyed by object number, and the object
// number of the /DSS dictionary itself (to be referenced from /Root).
type Objects struct {
	Bodies map[uint32][]byte
	DSSRef uint32
}

// Build serializes store into PDF indirect objects: one stream object per
// certificate/CRL/OCSP response, one dictionary object per VRI entry, and
// the top-level /DSS dictionary referencing all of them. alloc is called
// once per object in a stable order (certs, then CRLs, then OCSPs, then
// VRIs, then the /DSS dictionary itself) so callers can reserve a
// contiguous object range up front if they prefer.
func Build(store *Store, alloc ObjectIDAllocator) (*Objects, error) {
	if err := store.Validate(); err != nil {
		return nil, fmt.Errorf("ltv: invalid store: %w", err)
	}

	objects := &Objects{Bodies: make(map[uint32][]byte)}

	certIDs := make([]uint32, len(store.certs))
	for i, der := range store.Certs() {
		id := alloc()
		certIDs[i] = id
		objects.Bodies[id] = buildStreamObject(id, der)
	}

	crlIDs := make([]uint32, len(store.crls))
	for i, der := range store.CRLs() {
		id := alloc()
		crlIDs[i] = id
		objects.Bodies[id] = buildStreamObject(id, der)
	}

	ocspIDs := make([]uint32, len(store.ocsps))
	for i, der := range store.OCSPs() {
		id := alloc()
		ocspIDs[i] = id
		objects.Bodies[id] = buildStreamObject(id, der)
	}

	vriNames := make([]string, 0, len(store.vris))
	for name := range store.vris {
		vriNames = append(vriNames, name)
	}
	sort.Strings(vriNames)

	vriObjIDs := make(map[string]uint32, len(vriNames))
	for _, name := range vriNames {
		v := store.vris[name]
		id := alloc()
		vriObjIDs[name] = id
		objects.Bodies[id] = buildVRIObject(id, v, certIDs, crlIDs, ocspIDs)
	}

	dssID := alloc()
	objects.DSSRef = dssID
	objects.Bodies[dssID] = buildDSSObject(dssID, certIDs, crlIDs, ocspIDs, vriNames, vriObjIDs)

	return objects, nil
}

func buildStreamObject(id uint32, der []byte) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d 0 obj\n", id)
	fmt.Fprintf(&buf, "<< /Length %d >>\n", len(der))
	buf.WriteString("stream\n")
	buf.Write(der)
	buf.WriteString("\nendstream\n")
	buf.WriteString("endobj\n")
	return buf.Bytes()
}

func buildVRIObject(id uint32, v *VRI, certIDs, crlIDs, ocspIDs []uint32) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d 0 obj\n", id)
	buf.WriteString("<<\n")
	writeRefArray(&buf, "Cert", v.Certs, certIDs)
	writeRefArray(&buf, "CRL", v.CRLs, crlIDs)
	writeRefArray(&buf, "OCSP", v.OCSPs, ocspIDs)
	if v.TU != "" {
		fmt.Fprintf(&buf, "  /TU (%s)\n", v.TU)
	}
	buf.WriteString(">>\n")
	buf.WriteString("endobj\n")
	return buf.Bytes()
}

func buildDSSObject(id uint32, certIDs, crlIDs, ocspIDs []uint32, vriNames []string, vriObjIDs map[string]uint32) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d 0 obj\n", id)
	buf.WriteString("<<\n")
	buf.WriteString("  /Type /DSS\n")
	writeRefArrayAll(&buf, "Certs", certIDs)
	writeRefArrayAll(&buf, "CRLs", crlIDs)
	writeRefArrayAll(&buf, "OCSPs", ocspIDs)
	if len(vriNames) > 0 {
		buf.WriteString("  /VRI <<\n")
		for _, name := range vriNames {
			fmt.Fprintf(&buf, "    /%s %d 0 R\n", name, vriObjIDs[name])
		}
		buf.WriteString("  >>\n")
	}
	buf.WriteString(">>\n")
	buf.WriteString("endobj\n")
	return buf.Bytes()
}

func writeRefArray(buf *bytes.Buffer, key string, indices []int, objIDs []uint32) {
	if len(indices) == 0 {
		return
	}
	fmt.Fprintf(buf, "  /%s [", key)
	for i, idx := range indices {
		if i > 0 {
			buf.WriteString(" ")
		}
		fmt.Fprintf(buf, "%d 0 R", objIDs[idx])
	}
	buf.WriteString("]\n")
}

func writeRefArrayAll(buf *bytes.Buffer, key string, objIDs []uint32) {
	if len(objIDs) == 0 {
		return
	}
	fmt.Fprintf(buf, "  /%s [", key)
	for i, id := range objIDs {
		if i > 0 {
			buf.WriteString(" ")
		}
		fmt.Fprintf(buf, "%d 0 R", id)
	}
	buf.WriteString("]\n")
}
