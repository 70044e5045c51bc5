package webutils

import (
	"encoding/json"
	"image"
	"image/png"
	"io"
	"log"
	"mime/multipart"
	"net/http"

	"github.com/pkg/errors"
)

func WriteJson(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[web] Error marshaling json: %v, data: %+v", err, data)
	}
}

func WriteError(w http.ResponseWriter, code int, err error) {
	log.Printf("[web] Responding error: %v", err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": err.Error()}); err != nil {
		log.Printf("[web] Error marshaling error response: %v", err)
	}
}

// WritePNG encodes img and writes it with the given download filename. An
// empty filename serves the image inline.
func WritePNG(w http.ResponseWriter, img image.Image, filename string) {
	w.Header().Set("Content-Type", "image/png")
	if filename != "" {
		w.Header().Set("Content-Disposition", "attachment; filename=\""+filename+"\"")
	}
	if err := png.Encode(w, img); err != nil {
		log.Printf("[web] Error encoding png response: %v", err)
	}
}

// ReadFormFile pulls one uploaded file out of a multipart form. The caller
// owns closing the returned reader.
func ReadFormFile(r *http.Request, field string, maxMemory int64) (multipart.File, *multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return nil, nil, errors.Wrapf(err, "Cannot parse multipart form")
	}
	f, hdr, err := r.FormFile(field)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "Missing form file %q", field)
	}
	return f, hdr, nil
}

// DecodeJsonBody decodes the request body into out, rejecting trailing data.
func DecodeJsonBody(r *http.Request, out interface{}) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		return errors.Wrapf(err, "Cannot decode request body")
	}
	if dec.More() {
		return errors.New("Unexpected data after json body")
	}
	return nil
}

// CopyLimited copies up to limit bytes and errors if the source holds more.
func CopyLimited(dst io.Writer, src io.Reader, limit int64) error {
	n, err := io.Copy(dst, io.LimitReader(src, limit+1))
	if err != nil {
		return err
	}
	if n > limit {
		return errors.Errorf("Payload exceeds %d bytes", limit)
	}
	return nil
}
