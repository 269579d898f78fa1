package service

import (
	"basegraph.app/airbrake-proxy/common/id"
	"basegraph.app/airbrake-proxy/internal/airbrake"
	"basegraph.app/airbrake-proxy/internal/store"
)

type Services struct {
	stores     *store.Stores
	dispatcher Dispatcher
	ids        id.Generator
	ack        *airbrake.Acknowledgement
	locateURL  string
}

func NewServices(stores *store.Stores, dispatcher Dispatcher, ids id.Generator, ack *airbrake.Acknowledgement, locateURL string) *Services {
	return &Services{
		stores:     stores,
		dispatcher: dispatcher,
		ids:        ids,
		ack:        ack,
		locateURL:  locateURL,
	}
}

func (s *Services) Notices() NoticeService {
	return NewNoticeService(s.ids, s.ack, s.dispatcher, s.stores.Correlations(), s.locateURL)
}
