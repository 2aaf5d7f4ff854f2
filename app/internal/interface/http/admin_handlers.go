package http

import (
	"net/http"

	domcategory "example.com/gallery-storefront/app/internal/domain/category"
	domuser "example.com/gallery-storefront/app/internal/domain/user"
	useruc "example.com/gallery-storefront/app/internal/usecase/user"
)

type createUserRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	RoleCode string `json:"role_code" validate:"required"`
}

type updateUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=8"`
	RoleCode *string `json:"role_code"`
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	var filter domuser.ListUsersFilter
	if v := r.URL.Query().Get("role_code"); v != "" {
		role, err := domuser.ParseRoleCode(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, err)
			return
		}
		filter.RoleCode = &role
	}

	users, err := a.userSvc.ListUsers(r.Context(), filter)
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	resp := make([]map[string]any, 0, len(users))
	for _, u := range users {
		resp = append(resp, mapUser(u))
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": resp})
}

func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	executor := getAuthUser(r.Context())
	if executor == nil {
		respondError(w, http.StatusUnauthorized, errUnauthenticated)
		return
	}

	var req createUserRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	role, err := domuser.ParseRoleCode(req.RoleCode)
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}

	user, err := a.userSvc.CreateUser(r.Context(), useruc.CreateUserInput{
		ExecutorRole: executor.RoleCode,
		Name:         req.Name,
		Email:        req.Email,
		Password:     req.Password,
		RoleCode:     role,
	})
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapUser(user))
}

func (a *API) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	u, err := a.userSvc.GetUser(r.Context(), id)
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapUser(u))
}

func (a *API) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	executor := getAuthUser(r.Context())
	if executor == nil {
		respondError(w, http.StatusUnauthorized, errUnauthenticated)
		return
	}

	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	var req updateUserRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	var roleCode *domuser.RoleCode
	if req.RoleCode != nil {
		role, err := domuser.ParseRoleCode(*req.RoleCode)
		if err != nil {
			a.handleDomainError(w, r, err)
			return
		}
		roleCode = &role
	}

	user, err := a.userSvc.UpdateUser(r.Context(), useruc.UpdateUserInput{
		ExecutorRole: executor.RoleCode,
		ID:           id,
		Name:         req.Name,
		Email:        req.Email,
		Password:     req.Password,
		RoleCode:     roleCode,
	})
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapUser(user))
}

func (a *API) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	executor := getAuthUser(r.Context())
	if executor == nil {
		respondError(w, http.StatusUnauthorized, errUnauthenticated)
		return
	}
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if err := a.userSvc.DeleteUser(r.Context(), executor.UserID, id); err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type categoryRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Slug        string `json:"slug" validate:"omitempty,max=140"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}

type updateCategoryRequest struct {
	Name        string `json:"name" validate:"omitempty,max=120"`
	Slug        string `json:"slug" validate:"omitempty,max=140"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}

func (a *API) handleListPublicCategories(w http.ResponseWriter, r *http.Request) {
	a.listCategories(w, r, domcategory.ListFilter{OnlyActive: true})
}

func (a *API) handleListCategories(w http.ResponseWriter, r *http.Request) {
	a.listCategories(w, r, domcategory.ListFilter{OnlyActive: parseBoolQuery(r, "active")})
}

func (a *API) listCategories(w http.ResponseWriter, r *http.Request, filter domcategory.ListFilter) {
	categories, err := a.categorySvc.List(r.Context(), filter)
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	resp := make([]map[string]any, 0, len(categories))
	for _, c := range categories {
		resp = append(resp, mapCategory(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": resp})
}

func (a *API) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	c, err := a.categorySvc.Create(r.Context(), &domcategory.Category{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		IsActive:    active,
	})
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapCategory(c))
}

func (a *API) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	c, err := a.categorySvc.GetByID(r.Context(), id)
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapCategory(c))
}

func (a *API) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	var req updateCategoryRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	existing, err := a.categorySvc.GetByID(r.Context(), id)
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	active := existing.IsActive
	if req.IsActive != nil {
		active = *req.IsActive
	}
	c, err := a.categorySvc.Update(r.Context(), &domcategory.Category{
		ID:          id,
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		IsActive:    active,
	})
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapCategory(c))
}

func (a *API) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if err := a.categorySvc.Delete(r.Context(), id); err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
