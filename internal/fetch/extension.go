package fetch

import (
	"mime"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
)

const (
	genericExtension = ".bin"
	zipExtension     = ".zip"
)

// knownTypes pins the mappings the record source actually serves so the
// result does not depend on the host's mime.types.
var knownTypes = map[string]string{
	"application/pdf":              ".pdf",
	"application/x-pdf":            ".pdf",
	"application/zip":              ".zip",
	"application/x-zip":            ".zip",
	"application/x-zip-compressed": ".zip",
	"application/msword":           ".doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
	"application/vnd.oasis.opendocument.text":                                 ".odt",
	"application/rtf":                                                         ".rtf",
	"text/plain":                                                              ".txt",
	"text/html":                                                               ".html",
	"image/jpeg":                                                              ".jpg",
	"image/png":                                                               ".png",
}

var dispositionFilename = regexp.MustCompile(`filename\*?=(?:UTF-8'')?([^;]+)`)

// ResolveExtension picks a file extension for a download: the
// Content-Disposition filename first, then the declared Content-Type, then a
// keyword in the link text, then a generic binary extension.
func ResolveExtension(header http.Header, linkText string) string {
	if ext := extensionFromDisposition(header.Get("Content-Disposition")); ext != "" {
		return ext
	}
	if ext := extensionFromContentType(header.Get("Content-Type")); ext != "" {
		return ext
	}
	if strings.Contains(strings.ToLower(linkText), "zip") {
		return zipExtension
	}
	return genericExtension
}

func extensionFromDisposition(value string) string {
	if value == "" {
		return ""
	}

	var name string
	if _, params, err := mime.ParseMediaType(value); err == nil {
		name = params["filename"]
	}
	if name == "" {
		match := dispositionFilename.FindStringSubmatch(value)
		if len(match) < 2 {
			return ""
		}
		name = strings.Trim(strings.TrimSpace(match[1]), `"`)
		if decoded, err := url.QueryUnescape(name); err == nil {
			name = decoded
		}
	}

	return strings.ToLower(path.Ext(name))
}

func extensionFromContentType(value string) string {
	if value == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(value)
	if err != nil {
		return ""
	}
	if ext, ok := knownTypes[mediaType]; ok {
		return ext
	}
	if mediaType == "application/octet-stream" {
		return ""
	}
	exts, err := mime.ExtensionsByType(mediaType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	if exts[0] == genericExtension {
		return ""
	}
	return exts[0]
}
