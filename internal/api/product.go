package api

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/drygo/backend/internal/domain/product"
)

// listProducts returns the whole catalog.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, "", func(e *jx.Encoder) {
		e.ArrStart()
		for i := range products {
			encodeProduct(e, &products[i])
		}
		e.ArrEnd()
	})
}

// getProduct returns a single catalog item with its nutrition table.
func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), r.PathValue("productId"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, "", func(e *jx.Encoder) {
		encodeProduct(e, p)
	})
}

func encodeProduct(e *jx.Encoder, p *product.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("price")
	e.Float64(p.Price.InexactFloat64())
	e.FieldStart("image")
	e.Str(p.Image)
	if p.Badge != "" {
		e.FieldStart("badge")
		e.Str(p.Badge)
	}
	e.FieldStart("nutrition")
	e.ArrStart()
	for _, n := range p.Nutrition {
		e.ObjStart()
		e.FieldStart("nutrient")
		e.Str(n.Nutrient)
		e.FieldStart("per100g")
		e.Str(n.Per100g)
		if n.Per5g != "" {
			e.FieldStart("per5g")
			e.Str(n.Per5g)
		}
		if n.RDA != "" {
			e.FieldStart("rda")
			e.Str(n.RDA)
		}
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}
