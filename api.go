package main

import (
	"errors"
	"net/http"

	"github.com/CodedInternet/goservoctl/comms"
	"github.com/CodedInternet/goservoctl/onboard/actuator"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

func newRouter() chi.Router {
	r := chi.NewRouter()

	// A good base middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.RedirectSlashes)
	r.Use(middleware.Recoverer) // make sure this is last

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", Login)
		r.Get("/state", StateHandler)

		r.Group(func(r chi.Router) {
			r.Use(ValidateJWT)
			r.Get("/refresh_token", JWTRefresh)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireOperator)
			r.Post("/enable_drive", EnableDriveHandler)
			r.Post("/steering_cmd", CommandHandler(comms.CmdSteering))
			r.Post("/drive_cmd", CommandHandler(comms.CmdDrive))
		})
	})

	r.Route("/ws", func(r chi.Router) {
		r.Get("/state", StateSocketHandler)
		r.With(requireOperator).Get("/command", CommandSocketHandler)
	})

	return r
}

// requireOperator guards the routes that move the car. Authentication is
// skipped in debug mode.
func requireOperator(next http.Handler) http.Handler {
	if ENV.DEBUG {
		return next
	}
	return ValidateJWT(next)
}

//---
// Payloads
//---

type EnableDrivePayload struct {
	actuator.EnableRequest
}

func (p *EnableDrivePayload) Bind(r *http.Request) error {
	return nil
}

// CommandPayload mirrors an Int32 message: {"data": 1500}.
type CommandPayload struct {
	Data *int `json:"data"`
}

func (p *CommandPayload) Bind(r *http.Request) error {
	if p.Data == nil {
		return errors.New("missing data")
	}
	return nil
}

//---
// Views
//---

// EnableDriveHandler answers like the SetBool service: a malformed request
// still gets a 200 with success false.
func EnableDriveHandler(w http.ResponseWriter, r *http.Request) {
	data := &EnableDrivePayload{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	reply := ENV.Conductor.ProcessCommand(r.Context(), comms.Cmd{Cmd: comms.CmdEnableDrive, Data: data.Data})
	if !reply.Success && data.Data != nil {
		render.Render(w, r, ErrUnavailable(errors.New(reply.Message)))
		return
	}
	render.JSON(w, r, actuator.EnableResponse{Success: reply.Success, Message: reply.Message})
}

func CommandHandler(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := &CommandPayload{}
		if err := render.Bind(r, data); err != nil {
			render.Render(w, r, ErrInvalidRequest(err))
			return
		}

		reply := ENV.Conductor.ProcessCommand(r.Context(), comms.Cmd{Cmd: name, Value: data.Data})
		render.Status(r, http.StatusAccepted)
		render.JSON(w, r, reply)
	}
}

func StateHandler(w http.ResponseWriter, r *http.Request) {
	state, err := ENV.Conductor.State(r.Context())
	if err != nil {
		render.Render(w, r, ErrUnavailable(err))
		return
	}
	render.JSON(w, r, state)
}

//---
// Error responses
//---

type ErrResponse struct {
	Err            error `json:"-"` // low-level runtime error
	HTTPStatusCode int   `json:"-"` // http response status code

	StatusText string `json:"status"`          // user-level status message
	ErrorText  string `json:"error,omitempty"` // application-level error message, for debugging
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func newErrResponse(status int, text string, err error) render.Renderer {
	resp := &ErrResponse{Err: err, HTTPStatusCode: status, StatusText: text}
	if err != nil {
		resp.ErrorText = err.Error()
	}
	return resp
}

func ErrInvalidRequest(err error) render.Renderer {
	return newErrResponse(http.StatusBadRequest, "Invalid request.", err)
}

func ErrRender(err error) render.Renderer {
	return newErrResponse(http.StatusUnprocessableEntity, "Error rendering response.", err)
}

func ErrUnauthorized(err error) render.Renderer {
	return newErrResponse(http.StatusUnauthorized, "Unauthorized.", err)
}

func ErrPermissionDenied(err error) render.Renderer {
	return newErrResponse(http.StatusForbidden, "Permission denied.", err)
}

func ErrUnavailable(err error) render.Renderer {
	return newErrResponse(http.StatusServiceUnavailable, "Vehicle unavailable.", err)
}

var ErrNotFound = &ErrResponse{HTTPStatusCode: http.StatusNotFound, StatusText: "Resource not found."}
