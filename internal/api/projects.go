package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/digkill/promoshot/internal/service"
)

const (
	imagesField        = "images"
	maxUploadFiles     = 8
	multipartMemLimit  = 32 << 20
	defaultUploadLimit = 64 << 20
)

type createProjectForm struct {
	Name               string `validate:"max=255"`
	ProductName        string `validate:"required,max=255"`
	ProductDescription string `validate:"max=2000"`
	UserPrompt         string `validate:"max=2000"`
	AspectRatio        string `validate:"omitempty,oneof=1:1 9:16 16:9 4:5 3:4"`
	TargetLength       int    `validate:"gte=0,lte=60"`
}

type createVideoRequest struct {
	ProjectID string `json:"projectId" validate:"required"`
}

type publishRequest struct {
	IsPublished *bool `json:"isPublished" validate:"required"`
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.uploadLimit())
	if err := r.ParseMultipartForm(multipartMemLimit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeMessage(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	form := createProjectForm{
		Name:               strings.TrimSpace(r.FormValue("name")),
		ProductName:        strings.TrimSpace(r.FormValue("productName")),
		ProductDescription: strings.TrimSpace(r.FormValue("productDescription")),
		UserPrompt:         strings.TrimSpace(r.FormValue("userPrompt")),
		AspectRatio:        strings.TrimSpace(r.FormValue("aspectRatio")),
	}
	if raw := strings.TrimSpace(r.FormValue("targetLength")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "targetLength must be an integer")
			return
		}
		form.TargetLength = n
	}

	files := r.MultipartForm.File[imagesField]
	if len(files) < 2 {
		writeMessage(w, http.StatusBadRequest, "Please upload at least 2 images")
		return
	}
	if len(files) > maxUploadFiles {
		writeMessage(w, http.StatusBadRequest, "too many images")
		return
	}
	if err := s.validate.Struct(form); err != nil {
		writeMessage(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	uploads := make([]service.Upload, 0, len(files))
	for _, fh := range files {
		upload, err := readUpload(fh)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "could not read "+fh.Filename)
			return
		}
		uploads = append(uploads, upload)
	}

	projectID, err := s.projects.CreateImageProject(r.Context(), service.CreateImageInput{
		UserID:             userIDFrom(r.Context()),
		Name:               form.Name,
		ProductName:        form.ProductName,
		ProductDescription: form.ProductDescription,
		UserPrompt:         form.UserPrompt,
		AspectRatio:        form.AspectRatio,
		TargetLength:       form.TargetLength,
		Images:             uploads,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"projectId": projectID})
}

// uploadLimit caps the whole multipart body: every allowed file at full size plus room for fields.
func (s *Server) uploadLimit() int64 {
	if s.cfg.MaxImageBytes <= 0 {
		return defaultUploadLimit
	}
	return s.cfg.MaxImageBytes*maxUploadFiles + (1 << 20)
}

func readUpload(fh *multipart.FileHeader) (service.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return service.Upload{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return service.Upload{}, err
	}
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return service.Upload{Filename: fh.Filename, ContentType: contentType, Data: data}, nil
}

func (s *Server) handleCreateVideo(w http.ResponseWriter, r *http.Request) {
	var req createVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeMessage(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	videoURL, err := s.projects.CreateVideo(r.Context(), userIDFrom(r.Context()), req.ProjectID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"projectId": req.ProjectID, "videoUrl": videoURL})
}

func (s *Server) handleListPublished(w http.ResponseWriter, r *http.Request) {
	projects, err := s.projects.ListPublished(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

func (s *Server) handleListMine(w http.ResponseWriter, r *http.Request) {
	projects, err := s.projects.ListMine(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	project, err := s.projects.Get(r.Context(), userIDFrom(r.Context()), chi.URLParam(r, "projectId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"project": project})
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeMessage(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	projectID := chi.URLParam(r, "projectId")
	if err := s.projects.SetPublished(r.Context(), userIDFrom(r.Context()), projectID, *req.IsPublished); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"projectId": projectID, "isPublished": *req.IsPublished})
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := s.projects.Delete(r.Context(), userIDFrom(r.Context()), chi.URLParam(r, "projectId")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Project deleted")
}
