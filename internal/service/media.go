package service

import (
	"path/filepath"
	"strings"

	"UD_referral_bot/internal/model"
)

var mediaKinds = map[string]model.MediaKind{
	".jpg":  model.MediaPhoto,
	".jpeg": model.MediaPhoto,
	".png":  model.MediaPhoto,
	".mp4":  model.MediaVideo,
	".avi":  model.MediaVideo,
	".mov":  model.MediaVideo,
}

// ClassifyMedia picks the delivery kind of an attachment from its file extension.
func ClassifyMedia(path *string) model.MediaKind {
	if path == nil || *path == "" {
		return model.MediaNone
	}
	if kind, ok := mediaKinds[strings.ToLower(filepath.Ext(*path))]; ok {
		return kind
	}
	return model.MediaDocument
}
