package main

import (
	"github.com/gorilla/mux"

	"github.com/proteomisc/proteomisc/cache"
	"github.com/proteomisc/proteomisc/diann"
	"github.com/proteomisc/proteomisc/mzml"
)

type Global struct {
	log logger

	Site string

	// MaxUploadBytes bounds the in-memory portion of a multipart upload.
	MaxUploadBytes int64

	tables *cache.Store[*diann.Table]
	runs   *cache.Store[*mzml.Run]
}

type handler struct {
	*Global
	router *mux.Router
}

type logger interface {
	Print(v ...interface{})
	Printf(format string, v ...interface{})
	Println(v ...interface{})
}
