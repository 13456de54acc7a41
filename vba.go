package xlcore

import (
	"bytes"
	"io"

	"github.com/richardlehane/mscfb"
)

// VBAProject is a read-only view of /xl/vbaProject.bin: an OLE2 Compound
// File Binary container embedded inside the outer OPC package. xlcore never
// decompiles or executes macro code; it only preserves the part verbatim
// and exposes the stream names for inspection.
type VBAProject struct {
	Modules []string
	Raw     []byte
}

// parseVBAProject walks the CFB directory via mscfb and records the name of
// every directory entry it yields. A CFB parse failure is non-fatal here:
// Raw holds the part bytes regardless, matching the best-effort posture for
// optional sub-parts. The writer does not emit a VBA project part.
func parseVBAProject(data []byte) (*VBAProject, error) {
	proj := &VBAProject{Raw: data}
	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return proj, nil
	}
	for {
		entry, err := doc.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		if entry.Name != "" {
			proj.Modules = append(proj.Modules, entry.Name)
		}
	}
	return proj, nil
}
