package api

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	applog "github.com/BlacMeW/DataForge-Reader/internal/platform/log"
)

// allowedUploadExts 可上传的源文件类型
var allowedUploadExts = map[string]struct{}{
	".pdf": {}, ".epub": {}, ".docx": {},
	".txt": {}, ".md": {}, ".csv": {},
}

// UploadHandler 源文件上传 API。每个文件分配一个 uuid 作 file_id，
// 落盘名为 <file_id><ext>。CSV 同时按导出数据集命名复制到导出目录，
// 便于直接走数据集索引。
type UploadHandler struct {
	uploadDir  string
	exportsDir string
	maxMB      int
}

// NewUploadHandler 创建上传处理器
func NewUploadHandler(uploadDir, exportsDir string, maxMB int) *UploadHandler {
	if maxMB <= 0 {
		maxMB = 50
	}
	return &UploadHandler{
		uploadDir:  uploadDir,
		exportsDir: exportsDir,
		maxMB:      maxMB,
	}
}

// RegisterRoutes 注册上传路由
func (h *UploadHandler) RegisterRoutes(r chi.Router) {
	r.Post("/upload", h.Upload)
	r.Get("/uploads", h.ListUploads)
	r.Delete("/uploads/{fileID}", h.DeleteUpload)
}

func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	limitBytes := int64(h.maxMB) << 20

	if err := r.ParseMultipartForm(limitBytes); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, "no filename provided")
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if _, ok := allowedUploadExts[ext]; !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("file type %s not allowed", ext))
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, limitBytes+1))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read file")
		return
	}
	if int64(len(data)) > limitBytes {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("file size too large, maximum size is %dMB", h.maxMB))
		return
	}

	fileID := uuid.NewString()
	storedName := fileID + ext

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to prepare upload dir")
		return
	}
	if err := os.WriteFile(filepath.Join(h.uploadDir, storedName), data, 0o644); err != nil {
		applog.Error("[Upload] Failed to save file", "file_id", fileID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save file")
		return
	}

	if ext == ".csv" && h.exportsDir != "" {
		exportPath := filepath.Join(h.exportsDir, fileID+"_export.csv")
		if err := os.MkdirAll(h.exportsDir, 0o755); err == nil {
			err = os.WriteFile(exportPath, data, 0o644)
		}
		if err != nil {
			applog.Warn("[Upload] Could not copy CSV to exports dir", "file_id", fileID, "error", err)
		}
	}

	applog.Info("[Upload] File stored",
		"file_id", fileID,
		"filename", header.Filename,
		"size", len(data),
	)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"file_id":   fileID,
		"filename":  header.Filename,
		"file_path": storedName,
		"file_size": len(data),
		"file_type": strings.TrimPrefix(ext, "."),
	})
}

func (h *UploadHandler) ListUploads(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(h.uploadDir)
	if err != nil {
		if os.IsNotExist(err) {
			writeJSON(w, http.StatusOK, map[string]interface{}{"files": []any{}})
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to list files")
		return
	}

	files := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		files = append(files, map[string]interface{}{
			"file_id":     strings.TrimSuffix(name, ext),
			"filename":    name,
			"file_type":   strings.TrimPrefix(ext, "."),
			"file_size":   info.Size(),
			"upload_time": info.ModTime().Unix(),
		})
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i]["filename"].(string) < files[j]["filename"].(string)
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{"files": files})
}

func (h *UploadHandler) DeleteUpload(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")

	entries, err := os.ReadDir(h.uploadDir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to access upload dir")
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if strings.TrimSuffix(name, filepath.Ext(name)) != fileID {
			continue
		}
		if err := os.Remove(filepath.Join(h.uploadDir, name)); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to delete file")
			return
		}
		applog.Info("[Upload] File deleted", "file_id", fileID, "filename", name)
		writeJSON(w, http.StatusOK, map[string]string{"deleted": name})
		return
	}

	writeError(w, http.StatusNotFound, "file not found")
}
