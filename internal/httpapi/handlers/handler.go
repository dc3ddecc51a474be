package handlers

import (
	"gorm.io/gorm"

	"github.com/secret-echo/secret-echo/internal/config"
	"github.com/secret-echo/secret-echo/internal/message"
)

type Handler struct {
	DB       *gorm.DB
	Cfg      config.Config
	MsgSvc   *message.Service
	Dispatch message.Dispatcher
}

func NewHandler(db *gorm.DB, cfg config.Config, svc *message.Service, dispatch message.Dispatcher) *Handler {
	return &Handler{DB: db, Cfg: cfg, MsgSvc: svc, Dispatch: dispatch}
}
