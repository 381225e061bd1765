package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/complyvault/evidence-api/internal/models"
	appErrors "github.com/complyvault/evidence-api/pkg/errors"
)

// QuarantineMaxDays bounds how far out an UNKNOWN-scope resolution date may be.
const QuarantineMaxDays = 90

// MinRationaleLength is the minimum length of a usable rationale.
const MinRationaleLength = 20

// methodDatasets maps each ingestion method to the dataset types it may carry.
// Adding a regulatory dataset type means extending these tables, nothing else.
var methodDatasets = map[models.IngestionMethod][]models.DatasetType{
	models.MethodManualEntry: {
		models.DatasetSupplierMaster,
		models.DatasetProductMaster,
		models.DatasetEmissionsData,
		models.DatasetOther,
	},
	models.MethodFileUpload: {
		models.DatasetSupplierMaster,
		models.DatasetProductMaster,
		models.DatasetBOM,
		models.DatasetEmissionsData,
		models.DatasetTransaction,
		models.DatasetOther,
	},
	models.MethodERPExport: {
		models.DatasetSupplierMaster,
		models.DatasetProductMaster,
		models.DatasetBOM,
		models.DatasetTransaction,
	},
	models.MethodERPAPI: {
		models.DatasetSupplierMaster,
		models.DatasetProductMaster,
		models.DatasetBOM,
		models.DatasetEmissionsData,
		models.DatasetTransaction,
	},
	models.MethodAPIPush: {
		models.DatasetSupplierMaster,
		models.DatasetProductMaster,
		models.DatasetBOM,
		models.DatasetEmissionsData,
		models.DatasetTransaction,
		models.DatasetOther,
	},
	models.MethodSupplierPortal: {
		models.DatasetSupplierMaster,
		models.DatasetEmissionsData,
		models.DatasetOther,
	},
}

// datasetScopes maps each dataset type to the scopes it may declare.
var datasetScopes = map[models.DatasetType][]models.DeclaredScope{
	models.DatasetSupplierMaster: {
		models.ScopeEntireOrganization,
		models.ScopeLegalEntity,
		models.ScopeUnknown,
	},
	models.DatasetProductMaster: {
		models.ScopeEntireOrganization,
		models.ScopeLegalEntity,
		models.ScopeProductFamily,
		models.ScopeUnknown,
	},
	models.DatasetBOM: {
		models.ScopeProductFamily,
		models.ScopeSite,
		models.ScopeUnknown,
	},
	models.DatasetEmissionsData: {
		models.ScopeEntireOrganization,
		models.ScopeLegalEntity,
		models.ScopeSite,
		models.ScopeUnknown,
	},
	models.DatasetTransaction: {
		models.ScopeLegalEntity,
		models.ScopeSite,
		models.ScopeUnknown,
	},
	models.DatasetOther: {
		models.ScopeEntireOrganization,
		models.ScopeLegalEntity,
		models.ScopeSite,
		models.ScopeProductFamily,
		models.ScopeUnknown,
	},
}

// placeholderRationales are throwaway strings that carry no audit value.
var placeholderRationales = map[string]struct{}{
	"lorem ipsum":       {},
	"test":              {},
	"testing":           {},
	"asdf":              {},
	"n/a":               {},
	"na":                {},
	"todo":              {},
	"tbd":               {},
	"placeholder":       {},
	"see above":         {},
	"lorem ipsum dolor": {},
}

// Result reports a compatibility decision.
type Result struct {
	Allowed bool
	Reason  string
}

// CheckCompatibility decides whether (method, dataset, scope) is a legal
// combination. Pure; no I/O.
func CheckCompatibility(method models.IngestionMethod, dataset models.DatasetType, scope models.DeclaredScope) Result {
	allowedDatasets, ok := methodDatasets[method]
	if !ok {
		return Result{Allowed: false, Reason: fmt.Sprintf("unknown ingestion method %q", method)}
	}
	if !containsDataset(allowedDatasets, dataset) {
		return Result{Allowed: false, Reason: fmt.Sprintf("dataset type %s cannot be ingested via %s", dataset, method)}
	}

	allowedScopes, ok := datasetScopes[dataset]
	if !ok {
		return Result{Allowed: false, Reason: fmt.Sprintf("unknown dataset type %q", dataset)}
	}
	if !containsScope(allowedScopes, scope) {
		return Result{Allowed: false, Reason: fmt.Sprintf("scope %s is not valid for dataset type %s", scope, dataset)}
	}

	return Result{Allowed: true}
}

// CheckScopeFields validates the scope-dependent field pairings. Violations
// are field-level errors, never a generic failure.
func CheckScopeFields(scope models.DeclaredScope, scopeTargetID *string, quarantineReason *string, resolutionDue *time.Time, now time.Time) []appErrors.FieldError {
	var fields []appErrors.FieldError

	switch scope {
	case models.ScopeLegalEntity, models.ScopeSite, models.ScopeProductFamily:
		if scopeTargetID == nil || strings.TrimSpace(*scopeTargetID) == "" {
			fields = append(fields, appErrors.FieldError{
				Field:   "scope_target_id",
				Code:    "REQUIRED",
				Message: fmt.Sprintf("scope_target_id is required when declared_scope is %s", scope),
			})
		}
	case models.ScopeUnknown:
		if quarantineReason == nil || strings.TrimSpace(*quarantineReason) == "" {
			fields = append(fields, appErrors.FieldError{
				Field:   "quarantine_reason",
				Code:    "REQUIRED",
				Message: "quarantine_reason is required when declared_scope is UNKNOWN",
			})
		}
		if resolutionDue == nil {
			fields = append(fields, appErrors.FieldError{
				Field:   "resolution_due_date",
				Code:    "REQUIRED",
				Message: "resolution_due_date is required when declared_scope is UNKNOWN",
			})
		} else if resolutionDue.After(now.AddDate(0, 0, QuarantineMaxDays)) {
			fields = append(fields, appErrors.FieldError{
				Field:   "resolution_due_date",
				Code:    "TOO_FAR_OUT",
				Message: fmt.Sprintf("resolution_due_date must be within %d days", QuarantineMaxDays),
			})
		}
	}

	return fields
}

// RationaleValid rejects rationales that are too short or placeholder text.
func RationaleValid(rationale string) bool {
	trimmed := strings.TrimSpace(rationale)
	if len(trimmed) < MinRationaleLength {
		return false
	}
	lower := strings.ToLower(trimmed)
	if _, ok := placeholderRationales[lower]; ok {
		return false
	}
	if strings.HasPrefix(lower, "lorem ipsum") {
		return false
	}
	return !isRepeatedRune(trimmed)
}

func isRepeatedRune(s string) bool {
	var first rune
	for i, r := range s {
		if i == 0 {
			first = r
			continue
		}
		if r != first {
			return false
		}
	}
	return true
}

func containsDataset(list []models.DatasetType, dataset models.DatasetType) bool {
	for _, d := range list {
		if d == dataset {
			return true
		}
	}
	return false
}

func containsScope(list []models.DeclaredScope, scope models.DeclaredScope) bool {
	for _, s := range list {
		if s == scope {
			return true
		}
	}
	return false
}
