package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"net/http"
	"time"

	"github.com/gogpu/sprite"
	spriteimage "github.com/gogpu/sprite/internal/image"
	"github.com/gogpu/sprite/internal/settings"
	"github.com/gogpu/sprite/provider"
)

const indexHTML = `<!doctype html>
<html>
<head><meta charset="utf-8"><title>sprite preview</title>
<style>body{background:#020205;color:#e2e8f0;font-family:sans-serif;text-align:center}img{image-rendering:auto;margin-top:2em}</style>
</head>
<body>
<img id="frame" src="/frame.png" width="%[1]d" height="%[1]d" alt="frame">
<script>
const img = document.getElementById("frame");
setInterval(() => { img.src = "/frame.png?t=" + Date.now(); }, %[2]d);
</script>
</body>
</html>
`

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	st := s.settings()
	refresh := max(int(1000/st.FPS), 16)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, indexHTML, st.OutputSize, refresh)
}

// GET /frame.png?bg=dark
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	bg := s.settings().BackgroundMode()
	if name := r.URL.Query().Get("bg"); name != "" {
		parsed, err := sprite.ParseBackground(name)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		bg = parsed
	}

	raw := s.player.SnapshotPooled(s.pool)
	defer s.pool.Put(raw)
	out := s.pool.Get(raw.Rect.Dx(), raw.Rect.Dy())
	defer s.pool.Put(out)
	sprite.Flatten(out, raw, bg)

	s.writePNG(w, out)
}

// GET /sheet.png
func (s *Server) handleSheet(w http.ResponseWriter, _ *http.Request) {
	sheet := s.player.Sheet()
	if sheet == nil {
		s.writeError(w, http.StatusNotFound, sprite.ErrNoSheet)
		return
	}
	data, err := s.encode("png:"+sheet.ID, func() ([]byte, error) {
		return spriteimage.EncodeToBytes(sheet.Image)
	})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("X-Sheet-Id", sheet.ID)
	w.Header().Set("Content-Type", "image/png")
	w.Write(data)
}

// GET /export.gif?row=2&loops=1
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sheet := s.player.Sheet()
	if sheet == nil {
		s.writeError(w, http.StatusNotFound, sprite.ErrNoSheet)
		return
	}
	st := s.settings()
	opts := sprite.ExportOptions{
		Grid:       st.Grid(),
		Row:        queryInt(r, "row", s.player.Row()),
		Params:     st.RenderParams(),
		Background: st.BackgroundMode(),
		Loops:      queryInt(r, "loops", 1),
	}

	// Exports are deterministic for a sheet and options.
	key := fmt.Sprintf("gif:%s:%+v", sheet.ID, opts)
	data, err := s.encode(key, func() ([]byte, error) {
		var buf bytes.Buffer
		err := sprite.ExportGIF(&buf, sheet, opts)
		return buf.Bytes(), err
	})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "image/gif")
	w.Write(data)
}

// encode returns the cached bytes for key, running fn on a miss. Failed
// encodings are not cached.
func (s *Server) encode(key string, fn func() ([]byte, error)) ([]byte, error) {
	if data, ok := s.encoded.Get(key); ok {
		return data, nil
	}
	data, err := fn()
	if err != nil {
		return nil, err
	}
	s.encoded.Set(key, data)
	return data, nil
}

func (s *Server) writePNG(w http.ResponseWriter, img image.Image) {
	data, err := spriteimage.EncodeToBytes(img)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}

// StateResponse is the body of GET /api/state.
type StateResponse struct {
	State    string              `json:"state"`
	Error    string              `json:"error,omitempty"`
	Row      int                 `json:"row"`
	RowTitle string              `json:"row_title"`
	Frame    int                 `json:"frame"`
	Params   sprite.RenderParams `json:"params"`
	Grid     sprite.Grid         `json:"grid"`
	Sheet    *SheetInfo          `json:"sheet,omitempty"`
}

// SheetInfo describes the loaded sheet.
type SheetInfo struct {
	ID         string   `json:"id"`
	Generation uint64   `json:"generation"`
	Width      int      `json:"width"`
	Height     int      `json:"height"`
	Format     string   `json:"format,omitempty"`
	Threshold  float64  `json:"threshold"`
	ElapsedMS  int64    `json:"elapsed_ms"`
	Warnings   []string `json:"warnings,omitempty"`
}

func (s *Server) state() StateResponse {
	p := s.player
	row := p.Row()
	resp := StateResponse{
		State:    p.State().String(),
		Row:      row,
		RowTitle: sprite.AnimationRow(row).Label().Title,
		Frame:    p.Playback().Frame,
		Params:   p.RenderParams(),
		Grid:     p.Grid(),
	}
	if err := p.Err(); err != nil {
		resp.Error = err.Error()
	}
	if sheet := p.Sheet(); sheet != nil {
		info := &SheetInfo{
			ID:         sheet.ID,
			Generation: sheet.Generation,
			Width:      sheet.Image.Rect.Dx(),
			Height:     sheet.Image.Rect.Dy(),
			Format:     sheet.Format,
			Threshold:  sheet.Key.Threshold,
			ElapsedMS:  sheet.Elapsed.Milliseconds(),
		}
		if sheet.Report != nil {
			info.Warnings = sheet.Report.Warnings
		}
		resp.Sheet = info
	}
	return resp
}

// GET /api/state
func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.state())
}

// RowInfo is one entry of GET /api/rows.
type RowInfo struct {
	Index       int    `json:"index"`
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// GET /api/rows
func (s *Server) handleRows(w http.ResponseWriter, _ *http.Request) {
	rows := sprite.AnimationRows()
	out := make([]RowInfo, len(rows))
	for i, r := range rows {
		l := r.Label()
		out[i] = RowInfo{Index: int(r), Name: r.String(), Title: l.Title, Description: l.Description}
	}
	s.writeJSON(w, http.StatusOK, out)
}

// GET /api/settings
func (s *Server) handleSettings(w http.ResponseWriter, _ *http.Request) {
	st := s.settings()
	// Credentials never leave the process.
	st.Provider.APIKey = ""
	st.Provider.CustomAPIKey = ""
	s.writeJSON(w, http.StatusOK, st)
}

// ParamsRequest is the body of PUT /api/params. Absent fields are left
// unchanged.
type ParamsRequest struct {
	Row        *string  `json:"row"`
	FPS        *float64 `json:"fps"`
	Padding    *int     `json:"padding"`
	Scale      *float64 `json:"scale"`
	Threshold  *float64 `json:"threshold"`
	OutputSize *int     `json:"output_size"`
	Background *string  `json:"background"`
	ChromaKey  *string  `json:"chroma_key"`
	Columns    *int     `json:"columns"`
	Rows       *int     `json:"rows"`
}

func (req ParamsRequest) apply(st *settings.Settings) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&st.Row, req.Row)
	set(&st.Background, req.Background)
	set(&st.ChromaKey, req.ChromaKey)
	if req.FPS != nil {
		st.FPS = *req.FPS
	}
	if req.Padding != nil {
		st.Padding = *req.Padding
	}
	if req.Scale != nil {
		st.Scale = *req.Scale
	}
	if req.Threshold != nil {
		st.Threshold = *req.Threshold
	}
	if req.OutputSize != nil {
		st.OutputSize = *req.OutputSize
	}
	if req.Columns != nil {
		st.Columns = *req.Columns
	}
	if req.Rows != nil {
		st.Rows = *req.Rows
	}
}

// PUT /api/params
func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	var req ParamsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.Row != nil {
		if _, err := sprite.ParseAnimationRow(*req.Row); err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	st, err := s.update(req.apply)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

// UploadResponse is the body returned by POST /api/sheet and
// POST /api/generate.
type UploadResponse struct {
	Generation uint64         `json:"generation"`
	State      *StateResponse `json:"state,omitempty"`
}

// POST /api/sheet[?wait=1]
// Body: encoded image bytes or a data: URI.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(r)
	if err != nil {
		s.writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	if len(data) == 0 {
		s.writeError(w, http.StatusBadRequest, spriteimage.ErrEmptyData)
		return
	}
	s.load(w, r, data)
}

func (s *Server) load(w http.ResponseWriter, r *http.Request, data []byte) {
	gen := s.player.SetSource(data)
	resp := UploadResponse{Generation: gen}
	code := http.StatusAccepted

	if r.URL.Query().Get("wait") != "" {
		ctx, cancel := context.WithTimeout(r.Context(), s.player.LoadTimeout()+time.Second)
		defer cancel()
		state, err := s.player.Wait(ctx)
		switch state {
		case sprite.StateLoading:
			s.logger.Warn("server: gave up waiting for load", "generation", gen, "err", err)
			code = http.StatusGatewayTimeout
		case sprite.StateError:
			code = http.StatusUnprocessableEntity
		}
		st := s.state()
		resp.State = &st
	}
	s.writeJSON(w, code, resp)
}

// DELETE /api/sheet
func (s *Server) handleClear(w http.ResponseWriter, _ *http.Request) {
	s.player.ClearSource()
	w.WriteHeader(http.StatusNoContent)
}

// GenerateRequest is the body of POST /api/generate.
type GenerateRequest struct {
	Character string `json:"character"`
}

// POST /api/generate[?wait=1]
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if s.provider == nil {
		s.writeError(w, http.StatusServiceUnavailable, provider.ErrNotConfigured)
		return
	}
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	s.genMu.Lock()
	if s.generating {
		s.genMu.Unlock()
		s.writeError(w, http.StatusConflict, errors.New("generation already in progress"))
		return
	}
	s.generating = true
	s.genMu.Unlock()
	defer func() {
		s.genMu.Lock()
		s.generating = false
		s.genMu.Unlock()
	}()

	prompt := provider.PromptFor(req.Character, s.settings().Grid())
	data, err := s.provider.Generate(r.Context(), prompt)
	if err != nil {
		s.logger.Error("server: generate", "provider", s.provider.Name(), "err", err)
		code := http.StatusBadGateway
		if errors.Is(err, provider.ErrNotConfigured) {
			code = http.StatusServiceUnavailable
		}
		s.writeError(w, code, err)
		return
	}
	s.load(w, r, data)
}
