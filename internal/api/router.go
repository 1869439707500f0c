package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/meetbook/internal/auth"
	"github.com/starford/meetbook/internal/meetingservice"
)

// NewRouter creates a chi router with all meeting routes mounted.
// Every route requires an identity resolved by authn.
func NewRouter(svc *meetingservice.Service, authn auth.Authenticator) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authn))

	r.Route("/meetings", func(r chi.Router) {
		r.Get("/", h.ListMeetings)
		r.Post("/add", h.CreateMeeting)
		r.Get("/view/{id}", h.GetMeeting)
		r.Get("/view/{id}/ics", h.GetMeetingCalendar)
		r.Delete("/delete/{id}", h.DeleteMeeting)
		r.Post("/deleteMany", h.DeleteMeetings)
	})

	return r
}
