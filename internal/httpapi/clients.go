package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"audient.app/internal/fieldops"
)

func (a *API) createClient(w http.ResponseWriter, r *http.Request) {
	var req fieldops.ClientInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	c, err := a.svc.CreateClient(r.Context(), principal(r).UserID, req)
	if err != nil {
		a.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"client": c})
}

func (a *API) listClients(w http.ResponseWriter, r *http.Request) {
	list, err := a.svc.ListClients(r.Context(), principal(r).UserID)
	if err != nil {
		a.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"clients": list})
}

func (a *API) getClient(w http.ResponseWriter, r *http.Request) {
	c, err := a.svc.GetClient(r.Context(), principal(r).UserID, chi.URLParam(r, "id"))
	if err != nil {
		a.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"client": c})
}

func (a *API) patchClient(w http.ResponseWriter, r *http.Request) {
	var patch fieldops.ClientPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	c, err := a.svc.UpdateClient(r.Context(), principal(r).UserID, chi.URLParam(r, "id"), patch)
	if err != nil {
		a.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"client": c})
}

func (a *API) deleteClient(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.DeleteClient(r.Context(), principal(r).UserID, chi.URLParam(r, "id")); err != nil {
		a.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (a *API) createStakeholder(w http.ResponseWriter, r *http.Request) {
	var req fieldops.StakeholderInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	st, err := a.svc.AddStakeholder(r.Context(), principal(r).UserID, chi.URLParam(r, "id"), req)
	if err != nil {
		a.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"stakeholder": st})
}

func (a *API) listStakeholders(w http.ResponseWriter, r *http.Request) {
	list, err := a.svc.ListStakeholders(r.Context(), principal(r).UserID, chi.URLParam(r, "id"))
	if err != nil {
		a.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stakeholders": list})
}

func (a *API) deleteStakeholder(w http.ResponseWriter, r *http.Request) {
	err := a.svc.DeleteStakeholder(r.Context(), principal(r).UserID, chi.URLParam(r, "id"), chi.URLParam(r, "stakeholderID"))
	if err != nil {
		a.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (a *API) createRecording(w http.ResponseWriter, r *http.Request) {
	var req fieldops.RecordingInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	rec, err := a.svc.CreateRecording(r.Context(), principal(r).UserID, req)
	if err != nil {
		a.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"recording": rec})
}

func (a *API) listRecordings(w http.ResponseWriter, r *http.Request) {
	list, err := a.svc.ListRecordings(r.Context(), principal(r).UserID)
	if err != nil {
		a.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recordings": list})
}

func (a *API) getRecording(w http.ResponseWriter, r *http.Request) {
	rec, err := a.svc.GetRecording(r.Context(), principal(r).UserID, chi.URLParam(r, "id"))
	if err != nil {
		a.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recording": rec})
}

func (a *API) deleteRecording(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.DeleteRecording(r.Context(), principal(r).UserID, chi.URLParam(r, "id")); err != nil {
		a.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}
