package web

import (
	"bytes"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/trijayaagung/armada-studio/livery"
	"github.com/trijayaagung/armada-studio/pose"
	"github.com/trijayaagung/armada-studio/storage"
	"github.com/trijayaagung/armada-studio/studio"
	"github.com/trijayaagung/armada-studio/utils"
	"github.com/trijayaagung/armada-studio/webutils"
)

const (
	maxModelUpload   = 256 << 20
	maxTextureUpload = 64 << 20
)

func statusForError(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, studio.ErrNoModel):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleModelsList(w http.ResponseWriter, r *http.Request) {
	models, err := s.db.ListModels(r.Context())
	if err != nil {
		webutils.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	webutils.WriteJson(w, models)
}

func (s *Server) handleModelGet(w http.ResponseWriter, r *http.Request) {
	m, err := s.db.GetModel(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		webutils.WriteError(w, statusForError(err), err)
		return
	}
	webutils.WriteJson(w, m)
}

func (s *Server) handleModelUpload(w http.ResponseWriter, r *http.Request) {
	f, hdr, err := webutils.ReadFormFile(r, "file", maxModelUpload)
	if err != nil {
		webutils.WriteError(w, http.StatusBadRequest, err)
		return
	}
	defer f.Close()

	name := r.FormValue("name")
	if name == "" {
		name = strings.TrimSuffix(hdr.Filename, filepath.Ext(hdr.Filename))
	}

	dir := filepath.Join(s.cfg.DataDir, "models")
	if err := os.MkdirAll(dir, 0755); err != nil {
		webutils.WriteError(w, http.StatusInternalServerError, errors.Wrapf(err, "Cannot create models dir"))
		return
	}

	glbFile := uuid.NewString() + ".glb"
	dst, err := os.Create(filepath.Join(dir, glbFile))
	if err != nil {
		webutils.WriteError(w, http.StatusInternalServerError, errors.Wrapf(err, "Cannot create model file"))
		return
	}
	if err := webutils.CopyLimited(dst, f, maxModelUpload); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		webutils.WriteError(w, http.StatusBadRequest, errors.Wrapf(err, "Cannot store model file"))
		return
	}
	if err := dst.Close(); err != nil {
		webutils.WriteError(w, http.StatusInternalServerError, err)
		return
	}

	m := &storage.ModelAsset{Name: name, GLBFile: glbFile}
	if err := s.db.CreateModel(r.Context(), m); err != nil {
		os.Remove(dst.Name())
		webutils.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	webutils.WriteJson(w, m)
}

func (s *Server) handleModelDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	m, err := s.db.GetModel(r.Context(), id)
	if err != nil {
		webutils.WriteError(w, statusForError(err), err)
		return
	}
	if err := s.db.DeleteModel(r.Context(), id); err != nil {
		webutils.WriteError(w, statusForError(err), err)
		return
	}
	if m.GLBFile != "" {
		os.Remove(filepath.Join(s.cfg.DataDir, "models", filepath.Base(m.GLBFile)))
	}
	if cur, ok := s.session.Model(); ok && cur.ID == id {
		s.session.ClearModel()
	}
	webutils.WriteJson(w, map[string]bool{"deleted": true})
}

func (s *Server) handlePosesList(w http.ResponseWriter, r *http.Request) {
	poses, err := s.db.ListPoses(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		webutils.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	webutils.WriteJson(w, poses)
}

func (s *Server) handlePoseGet(w http.ResponseWriter, r *http.Request) {
	p, err := s.db.GetPose(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		webutils.WriteError(w, statusForError(err), err)
		return
	}
	webutils.WriteJson(w, p)
}

func (s *Server) handlePoseDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.db.DeletePose(r.Context(), mux.Vars(r)["id"]); err != nil {
		webutils.WriteError(w, statusForError(err), err)
		return
	}
	webutils.WriteJson(w, map[string]bool{"deleted": true})
}

func (s *Server) handleFleetList(w http.ResponseWriter, r *http.Request) {
	fleet, err := s.db.ListFleet(r.Context())
	if err != nil {
		webutils.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	webutils.WriteJson(w, fleet)
}

func (s *Server) handleFleetCreate(w http.ResponseWriter, r *http.Request) {
	var e storage.FleetEntry
	if err := webutils.DecodeJsonBody(r, &e); err != nil {
		webutils.WriteError(w, http.StatusBadRequest, err)
		return
	}
	if e.Name == "" || e.ModelID == "" {
		webutils.WriteError(w, http.StatusBadRequest, errors.New("Fleet entry needs name and model_id"))
		return
	}
	if err := s.db.CreateFleetEntry(r.Context(), &e); err != nil {
		webutils.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	webutils.WriteJson(w, &e)
}

func (s *Server) handleFleetDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.db.DeleteFleetEntry(r.Context(), mux.Vars(r)["id"]); err != nil {
		webutils.WriteError(w, statusForError(err), err)
		return
	}
	webutils.WriteJson(w, map[string]bool{"deleted": true})
}

func (s *Server) handleSessionState(w http.ResponseWriter, r *http.Request) {
	webutils.WriteJson(w, s.session.State())
}

func (s *Server) handleSessionSelect(w http.ResponseWriter, r *http.Request) {
	m, err := s.session.SelectModel(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		webutils.WriteError(w, statusForError(err), err)
		return
	}
	webutils.WriteJson(w, m)
}

func (s *Server) handleSessionClear(w http.ResponseWriter, r *http.Request) {
	s.session.ClearModel()
	webutils.WriteJson(w, s.session.State())
}

func (s *Server) handleSessionSavePose(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := webutils.DecodeJsonBody(r, &req); err != nil {
		webutils.WriteError(w, http.StatusBadRequest, err)
		return
	}
	if req.Name == "" {
		req.Name = s.names.Next()
	}
	p, err := s.session.SavePose(r.Context(), req.Name)
	if err != nil {
		webutils.WriteError(w, statusForError(err), err)
		return
	}
	webutils.WriteJson(w, p)
}

func (s *Server) handleSessionApplyPose(w http.ResponseWriter, r *http.Request) {
	p, err := s.session.ApplyPose(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		webutils.WriteError(w, statusForError(err), err)
		return
	}
	webutils.WriteJson(w, p)
}

func (s *Server) handleSessionManual(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Zoom float32 `json:"zoom"`
		FOV  float32 `json:"fov"`
	}
	if err := webutils.DecodeJsonBody(r, &req); err != nil {
		webutils.WriteError(w, http.StatusBadRequest, err)
		return
	}
	if req.Zoom == 0 {
		req.Zoom = pose.DefaultZoom
	}
	if req.FOV == 0 {
		req.FOV = pose.DefaultFOV
	}
	s.session.SetManual(req.Zoom, req.FOV)
	webutils.WriteJson(w, s.session.State())
}

func (s *Server) handleSessionViewport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	if err := webutils.DecodeJsonBody(r, &req); err != nil {
		webutils.WriteError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.session.SetViewport(req.Width, req.Height); err != nil {
		webutils.WriteError(w, http.StatusBadRequest, err)
		return
	}
	webutils.WriteJson(w, s.session.State())
}

func (s *Server) handleSessionLivery(w http.ResponseWriter, r *http.Request) {
	role, err := livery.ParseRole(mux.Vars(r)["role"])
	if err != nil {
		webutils.WriteError(w, http.StatusBadRequest, err)
		return
	}

	// The decode runs past the end of this request, so the upload is copied
	// out of the multipart temp file before the handler returns.
	var src io.Reader
	f, _, err := webutils.ReadFormFile(r, "file", maxTextureUpload)
	if err == nil {
		var buf bytes.Buffer
		copyErr := webutils.CopyLimited(&buf, f, maxTextureUpload)
		f.Close()
		if copyErr != nil {
			webutils.WriteError(w, http.StatusBadRequest, errors.Wrapf(copyErr, "Cannot read livery upload"))
			return
		}
		src = bytes.NewReader(buf.Bytes())
	}

	b, err := s.session.BindLivery(role, src)
	if err != nil {
		webutils.WriteError(w, statusForError(err), err)
		return
	}

	// wait=1 turns the async bind into a synchronous request
	if r.URL.Query().Get("wait") == "1" {
		if err := b.Wait(r.Context()); err != nil {
			webutils.WriteError(w, http.StatusUnprocessableEntity, err)
			return
		}
		webutils.WriteJson(w, map[string]interface{}{"applied": b.Applied()})
		return
	}
	webutils.WriteJson(w, map[string]bool{"accepted": true})
}

func (s *Server) handleSessionPreview(w http.ResponseWriter, r *http.Request) {
	img, err := s.session.Preview()
	if err != nil {
		webutils.WriteError(w, http.StatusConflict, err)
		return
	}
	webutils.WritePNG(w, img, "")
}

func (s *Server) handleSessionExport(w http.ResponseWriter, r *http.Request) {
	name, data, err := s.session.Export(r.Context())
	if err != nil {
		webutils.WriteError(w, statusForError(err), err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+name+"\"")
	if _, err := w.Write(data); err != nil {
		webutils.WriteError(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) handleDebugState(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, utils.SDump(s.session.State()))
}
