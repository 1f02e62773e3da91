package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/example/vereinskasse/internal/backup"
	"github.com/example/vereinskasse/internal/state"
)

// maxImportBytes bounds the accepted backup document size.
const maxImportBytes = 32 << 20

// BackupHandlers serves the manual export/import of the full register state.
type BackupHandlers struct {
	codec *backup.Codec
	state *state.State
}

func NewBackupHandlers(codec *backup.Codec, st *state.State) *BackupHandlers {
	return &BackupHandlers{codec: codec, state: st}
}

// Export downloads the full state as a backup document with the dated
// filename convention.
func (h *BackupHandlers) Export(w http.ResponseWriter, r *http.Request) {
	envelope, filename := h.codec.Export(h.state)

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	respondJSON(w, http.StatusOK, envelope)
}

// Import replaces the full state with the posted backup document. The
// response tells the client to perform a full reload so every view
// recomputes from the imported ground truth.
func (h *BackupHandlers) Import(w http.ResponseWriter, r *http.Request) {
	doc, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		respondJSONError(w, "Failed to read backup document", http.StatusBadRequest)
		return
	}

	if err := h.codec.Import(r.Context(), h.state, doc); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Data imported",
		"reload":  true,
	})
}
