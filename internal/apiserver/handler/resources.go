package handler

import (
	"net/http"

	"github.com/budgetguard/budgetguard/pkg/cloudprovider"
	"github.com/budgetguard/budgetguard/pkg/lifecycle"
)

// ResourceHandler serves the live resource inventory.
type ResourceHandler struct {
	provider cloudprovider.ResourceProvider
}

func NewResourceHandler(provider cloudprovider.ResourceProvider) *ResourceHandler {
	return &ResourceHandler{provider: provider}
}

// List returns the current inventory, optionally filtered by ?kind=.
func (h *ResourceHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		resources []lifecycle.ManagedResource
		err       error
	)
	if kind := r.URL.Query().Get("kind"); kind != "" {
		resources, err = h.provider.ListResourcesByKind(r.Context(), lifecycle.ResourceKind(kind))
	} else {
		resources, err = h.provider.ListResources(r.Context())
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if resources == nil {
		resources = []lifecycle.ManagedResource{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(resources),
		"resources": resources,
	})
}
