package upload

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/romana/rlog"

	"marketplace_api/constants"
	"marketplace_api/custom/util"
)

// HandlerContext proxies media uploads to a storage backend. Vercel Blob is
// used when BlobToken is set, otherwise files are forwarded to the AppGen
// upload service.
type HandlerContext struct {
	UploadUrl  string
	BlobUrl    string
	BlobToken  string
	httpClient *http.Client
}

type UrlUploadRequest struct {
	Url      string `json:"url"`
	Base64   string `json:"base64"`
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
}

var allowedContentTypes = []string{
	"image/jpeg", "image/png", "image/gif", "image/webp",
	"video/mp4", "video/quicktime", "video/webm",
	"application/pdf",
}

func (ctx *HandlerContext) InitialHandlerContext() {
	ctx.UploadUrl = constants.APPGEN_UPLOAD_URL
	ctx.BlobUrl = constants.VERCEL_BLOB_URL
	ctx.BlobToken = util.GetEnv("BLOB_READ_WRITE_TOKEN", "")
	ctx.httpClient = &http.Client{Timeout: 60 * time.Second}
}

// HandleUpload serves /api/upload. POST accepts a multipart file, a JSON
// body with a source url, or a base64 payload. GET reports the endpoint
// contract so clients can probe it.
func (ctx *HandlerContext) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if !util.IsAllowHttpMethod([]string{http.MethodGet, http.MethodPost}, w, r) {
		return
	}
	if r.Method == http.MethodGet {
		util.WriteJson(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"info":    "POST multipart form data with a 'file' field, or JSON with 'url' or 'base64'",
			"maxSize": constants.MAX_UPLOAD_BYTES,
			"allowed": allowedContentTypes,
		})
		return
	}

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, constants.MAX_UPLOAD_BYTES+(64<<10))
		ctx.uploadMultipart(w, r)
		return
	}
	// base64 inflates the wire size by a third, the decoded-size checks below
	// are the real gate
	r.Body = http.MaxBytesReader(w, r.Body, constants.MAX_UPLOAD_BYTES*2)
	ctx.uploadFromJson(w, r)
}

func (ctx *HandlerContext) uploadMultipart(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(constants.MAX_UPLOAD_BYTES); err != nil {
		util.WriteError(w, http.StatusBadRequest, "File exceeds the 10MB limit")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		util.WriteError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		util.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	fileType := header.Header.Get("Content-Type")
	if !isAllowedContentType(fileType) {
		util.WriteError(w, http.StatusBadRequest, fmt.Sprintf("File type %s is not allowed", fileType))
		return
	}
	ctx.dispatch(w, data, header.Filename, fileType)
}

func (ctx *HandlerContext) uploadFromJson(w http.ResponseWriter, r *http.Request) {
	req := UrlUploadRequest{}
	if err := util.FetchReqObject(r, &req); err != nil {
		util.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Url != "" {
		ctx.uploadFromUrl(w, req.Url)
		return
	}
	if req.Base64 != "" {
		ctx.uploadFromBase64(w, &req)
		return
	}
	util.WriteError(w, http.StatusBadRequest, "No file, url or base64 payload provided")
}

// uploadFromUrl fetches a remote file and re-uploads it to our storage so the
// app never depends on third-party hosting staying up.
func (ctx *HandlerContext) uploadFromUrl(w http.ResponseWriter, sourceUrl string) {
	resp, err := ctx.httpClient.Get(sourceUrl)
	if err != nil {
		rlog.Error("Fetch source url failed: ", err.Error())
		util.WriteError(w, http.StatusBadRequest, "Could not fetch the source url")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		util.WriteError(w, http.StatusBadRequest, fmt.Sprintf("Source url returned status %d", resp.StatusCode))
		return
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, constants.MAX_UPLOAD_BYTES+1))
	if err != nil {
		util.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if int64(len(data)) > constants.MAX_UPLOAD_BYTES {
		util.WriteError(w, http.StatusBadRequest, "File exceeds the 10MB limit")
		return
	}

	fileType := resp.Header.Get("Content-Type")
	if !isAllowedContentType(fileType) {
		util.WriteError(w, http.StatusBadRequest, fmt.Sprintf("File type %s is not allowed", fileType))
		return
	}
	ctx.dispatch(w, data, fileNameFromUrl(sourceUrl, fileType), fileType)
}

func (ctx *HandlerContext) uploadFromBase64(w http.ResponseWriter, req *UrlUploadRequest) {
	raw := req.Base64
	// data: URIs carry the mime type inline
	if strings.HasPrefix(raw, "data:") {
		if idx := strings.Index(raw, ";base64,"); idx > 0 {
			if req.MimeType == "" {
				req.MimeType = raw[len("data:"):idx]
			}
			raw = raw[idx+len(";base64,"):]
		}
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		util.WriteError(w, http.StatusBadRequest, "Invalid base64 payload")
		return
	}
	if int64(len(data)) > constants.MAX_UPLOAD_BYTES {
		util.WriteError(w, http.StatusBadRequest, "File exceeds the 10MB limit")
		return
	}

	fileType := req.MimeType
	if fileType == "" {
		fileType = http.DetectContentType(data)
	}
	if !isAllowedContentType(fileType) {
		util.WriteError(w, http.StatusBadRequest, fmt.Sprintf("File type %s is not allowed", fileType))
		return
	}

	fileName := req.FileName
	if fileName == "" {
		fileName = uuid.New().String() + extensionForType(fileType)
	}
	ctx.dispatch(w, data, fileName, fileType)
}

func (ctx *HandlerContext) dispatch(w http.ResponseWriter, data []byte, fileName, fileType string) {
	if fileName == "" {
		fileName = uuid.New().String() + extensionForType(fileType)
	}

	var resultUrl string
	var err error
	if ctx.BlobToken != "" {
		resultUrl, err = ctx.putBlob(data, fileName, fileType)
	} else {
		resultUrl, err = ctx.forwardUpload(data, fileName, fileType)
	}
	if err != nil {
		rlog.Error("Upload failed: ", err.Error())
		util.WriteError(w, http.StatusBadGateway, err.Error())
		return
	}

	util.WriteJson(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"url":     resultUrl,
		"size":    len(data),
		"type":    fileType,
	})
}

// putBlob stores the file in Vercel Blob with a random suffix on the name.
func (ctx *HandlerContext) putBlob(data []byte, fileName, fileType string) (string, error) {
	target := fmt.Sprintf("%s/%s", strings.TrimRight(ctx.BlobUrl, "/"), url.PathEscape(fileName))
	req, err := http.NewRequest(http.MethodPut, target, bytes.NewReader(data))
	if err != nil {
		return "", errors.Wrap(err, "build blob request")
	}
	req.Header.Set("Authorization", "Bearer "+ctx.BlobToken)
	req.Header.Set("Content-Type", fileType)
	req.Header.Set("x-add-random-suffix", "1")

	resp, err := ctx.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "call blob store")
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return "", errors.Errorf("blob store returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var blobResp struct {
		Url string `json:"url"`
	}
	if err := json.Unmarshal(respBody, &blobResp); err != nil || blobResp.Url == "" {
		return "", errors.New("blob store returned no url")
	}
	return blobResp.Url, nil
}

// forwardUpload relays the file to the AppGen upload service as multipart form data.
func (ctx *HandlerContext) forwardUpload(data []byte, fileName, fileType string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return "", errors.Wrap(err, "build multipart body")
	}
	if _, err := part.Write(data); err != nil {
		return "", errors.Wrap(err, "write multipart body")
	}
	if err := writer.Close(); err != nil {
		return "", errors.Wrap(err, "close multipart body")
	}

	req, err := http.NewRequest(http.MethodPost, ctx.UploadUrl, &body)
	if err != nil {
		return "", errors.Wrap(err, "build upload request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := ctx.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "call upload service")
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return "", errors.Errorf("upload service returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var uploadResp struct {
		Url string `json:"url"`
	}
	if err := json.Unmarshal(respBody, &uploadResp); err != nil || uploadResp.Url == "" {
		return "", errors.New("upload service returned no url")
	}
	return uploadResp.Url, nil
}

func isAllowedContentType(fileType string) bool {
	base := fileType
	if idx := strings.Index(base, ";"); idx > 0 {
		base = strings.TrimSpace(base[:idx])
	}
	for _, allowed := range allowedContentTypes {
		if base == allowed {
			return true
		}
	}
	return false
}

func extensionForType(fileType string) string {
	switch fileType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	case "video/quicktime":
		return ".mov"
	case "video/webm":
		return ".webm"
	case "application/pdf":
		return ".pdf"
	default:
		return ""
	}
}

func fileNameFromUrl(sourceUrl, fileType string) string {
	parsed, err := url.Parse(sourceUrl)
	if err != nil || parsed.Path == "" || parsed.Path == "/" {
		return uuid.New().String() + extensionForType(fileType)
	}
	name := path.Base(parsed.Path)
	if name == "." || name == "/" {
		return uuid.New().String() + extensionForType(fileType)
	}
	return name
}
