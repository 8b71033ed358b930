package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"audient.app/internal/fieldops"
)

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var req fieldops.RegisterInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	user, token, err := a.svc.Register(r.Context(), req)
	if err != nil {
		a.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": user, "token": token})
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req fieldops.LoginInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	res, err := a.svc.Login(r.Context(), req)
	if err != nil {
		a.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	user, err := a.svc.Me(r.Context(), principal(r).UserID)
	if err != nil {
		a.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (a *API) getConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := a.svc.OrgConfig(r.Context(), principal(r).UserID)
	if err != nil {
		a.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"config": cfg})
}

func (a *API) patchConfig(w http.ResponseWriter, r *http.Request) {
	var patch fieldops.ConfigPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	cfg, err := a.svc.UpdateOrgConfig(r.Context(), principal(r).UserID, patch)
	if err != nil {
		a.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"config": cfg})
}

func (a *API) todayAttendance(w http.ResponseWriter, r *http.Request) {
	rec, err := a.svc.TodayAttendance(r.Context(), principal(r).UserID)
	if err != nil {
		a.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"attendance": rec})
}

func (a *API) createLocation(w http.ResponseWriter, r *http.Request) {
	var req fieldops.LocationInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	profile, err := a.svc.CreateLocation(r.Context(), principal(r).UserID, req)
	if err != nil {
		a.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"profile": profile})
}

func (a *API) listLocations(w http.ResponseWriter, r *http.Request) {
	list, err := a.svc.ListLocations(r.Context(), principal(r).UserID)
	if err != nil {
		a.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"profiles": list})
}

func (a *API) deleteLocation(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.DeleteLocation(r.Context(), principal(r).UserID, chi.URLParam(r, "id")); err != nil {
		a.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (a *API) employees(w http.ResponseWriter, r *http.Request) {
	list, err := a.svc.Employees(r.Context(), principal(r).UserID)
	if err != nil {
		a.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"employees": list})
}

func (a *API) attendanceByDate(w http.ResponseWriter, r *http.Request) {
	date := trimmedQuery(r, "date")
	if date == "" {
		writeError(w, r, http.StatusBadRequest, "date is required")
		return
	}
	records, err := a.svc.AttendanceByDate(r.Context(), principal(r).UserID, date)
	if err != nil {
		a.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records, "date": date})
}

func (a *API) monthSummary(w http.ResponseWriter, r *http.Request) {
	year, errY := strconv.Atoi(trimmedQuery(r, "year"))
	month, errM := strconv.Atoi(trimmedQuery(r, "month"))
	if errY != nil || errM != nil {
		writeError(w, r, http.StatusBadRequest, "year and month must be integers")
		return
	}
	days, err := a.svc.MonthSummary(r.Context(), principal(r).UserID, year, month)
	if err != nil {
		a.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": days, "year": year, "month": month})
}

func (a *API) employeeAttendance(w http.ResponseWriter, r *http.Request) {
	list, err := a.svc.EmployeeAttendance(r.Context(), principal(r).UserID, chi.URLParam(r, "id"))
	if err != nil {
		a.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"attendance": list})
}
