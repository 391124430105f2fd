package http

import (
	"net/http"
	"strings"

	"expenses/internal/core"
	applog "expenses/internal/log"
)

type categoryRequest struct {
	Name          string   `json:"name"`
	Color         string   `json:"color"`
	Subcategories []string `json:"subcategories"`
}

type subcategoryRequest struct {
	Name string `json:"name"`
}

type exampleRequest struct {
	Description   string   `json:"description"`
	SubcategoryID *int64   `json:"subcategoryId"`
	DefaultNotes  string   `json:"defaultNotes"`
	Keywords      []string `json:"keywords"`
}

var (
	categoryErrors = errorMessages{
		notFound:  "Category not found",
		conflict:  "Category name already exists",
		internal:  "Failed to save category",
		operation: applog.OpUpdate,
	}
	subcategoryErrors = errorMessages{
		notFound:  "Subcategory not found",
		conflict:  "Subcategory already exists",
		internal:  "Failed to save subcategory",
		operation: applog.OpUpdate,
	}
	exampleErrors = errorMessages{
		notFound:  "Example not found",
		conflict:  "Example already exists",
		internal:  "Failed to save example",
		operation: applog.OpUpdate,
	}
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.deps.Services.Categories.List(r.Context())
	if err != nil {
		s.writeError(w, r, err, errorMessages{internal: "Failed to fetch categories", operation: applog.OpList})
		return
	}
	NewJSONResponse().Body(toCategoriesJSON(cats)).Write(w)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	detail, err := s.deps.Services.Categories.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, errorMessages{
			notFound:  categoryErrors.notFound,
			internal:  "Failed to fetch category",
			operation: applog.OpRead,
		})
		return
	}
	NewJSONResponse().Body(toCategoryDetailJSON(detail)).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	name := sanitizeInput(req.Name)
	if name == "" {
		BadRequestError("Category name is required").Write(w)
		return
	}

	subs := make([]string, 0, len(req.Subcategories))
	for _, sub := range req.Subcategories {
		subs = append(subs, sanitizeInput(sub))
	}

	c, err := s.deps.Services.Categories.Create(r.Context(), core.Category{
		Name:  name,
		Color: strings.TrimSpace(req.Color),
	}, subs)
	if err != nil {
		msgs := categoryErrors
		msgs.operation = applog.OpCreate
		s.writeError(w, r, err, msgs)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(toCategoryJSON(c)).Write(w)
}

// handleUpdateCategory keeps the stored value of any empty field.
func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	c, err := s.deps.Services.Categories.Update(r.Context(), core.Category{
		ID:    id,
		Name:  sanitizeInput(req.Name),
		Color: strings.TrimSpace(req.Color),
	})
	if err != nil {
		s.writeError(w, r, err, categoryErrors)
		return
	}
	NewJSONResponse().Body(toCategoryJSON(c)).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err := s.deps.Services.Categories.Delete(r.Context(), id); err != nil {
		msgs := categoryErrors
		msgs.internal = "Failed to delete category"
		msgs.operation = applog.OpDelete
		s.writeError(w, r, err, msgs)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleAddSubcategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	var req subcategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	name := sanitizeInput(req.Name)
	if name == "" {
		BadRequestError("Subcategory name is required").Write(w)
		return
	}

	sub, err := s.deps.Services.Categories.AddSubcategory(r.Context(), id, name)
	if err != nil {
		msgs := subcategoryErrors
		msgs.notFound = categoryErrors.notFound
		msgs.operation = applog.OpCreate
		s.writeError(w, r, err, msgs)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(subcategoryJSON{ID: sub.ID, Name: sub.Name}).Write(w)
}

func (s *Server) handleDeleteSubcategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	subID, err := pathID(r, "subId")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err := s.deps.Services.Categories.DeleteSubcategory(r.Context(), id, subID); err != nil {
		msgs := subcategoryErrors
		msgs.internal = "Failed to delete subcategory"
		msgs.operation = applog.OpDelete
		s.writeError(w, r, err, msgs)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleListExamples(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	examples, err := s.deps.Services.Categories.Examples(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, errorMessages{
			notFound:  categoryErrors.notFound,
			internal:  "Failed to fetch examples",
			operation: applog.OpList,
		})
		return
	}
	NewJSONResponse().Body(toExamplesJSON(examples)).Write(w)
}

func (s *Server) handleCreateExample(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	var req exampleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	desc := sanitizeInput(req.Description)
	if desc == "" {
		BadRequestError("Description is required").Write(w)
		return
	}

	e, err := s.deps.Services.Categories.AddExample(r.Context(), core.Example{
		CategoryID:    id,
		SubcategoryID: req.SubcategoryID,
		Description:   desc,
		DefaultNotes:  sanitizeInput(req.DefaultNotes),
		Keywords:      req.Keywords,
	})
	if err != nil {
		msgs := exampleErrors
		msgs.notFound = "Category or subcategory not found"
		msgs.operation = applog.OpCreate
		s.writeError(w, r, err, msgs)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(toExampleJSON(e)).Write(w)
}

func (s *Server) handleDeleteExample(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	exampleID, err := pathID(r, "exampleId")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err := s.deps.Services.Categories.DeleteExample(r.Context(), id, exampleID); err != nil {
		msgs := exampleErrors
		msgs.internal = "Failed to delete example"
		msgs.operation = applog.OpDelete
		s.writeError(w, r, err, msgs)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
