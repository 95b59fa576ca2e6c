package auth

import "bookstore-service/internal/models"

// Capability names an action guarded by role
type Capability string

const (
	CapManageCatalog   Capability = "catalog:manage"
	CapManageOwnBooks  Capability = "books:manage-own"
	CapRecordSales     Capability = "books:record-sale"
	CapViewAdminStats  Capability = "stats:admin"
	CapViewSellerStats Capability = "stats:seller"
	CapCompleteOrders  Capability = "orders:complete"
)

// Policy maps roles to capabilities. Owner-scoped capabilities additionally
// require the principal to own the resource.
type Policy struct {
	grants      map[string]map[Capability]bool
	ownerScoped map[Capability]bool
}

// DefaultPolicy is the bookstore role table
func DefaultPolicy() *Policy {
	return &Policy{
		grants: map[string]map[Capability]bool{
			models.RoleAdmin: {
				CapManageCatalog:  true,
				CapViewAdminStats: true,
				CapCompleteOrders: true,
			},
			models.RoleSeller: {
				CapManageOwnBooks:  true,
				CapRecordSales:     true,
				CapViewSellerStats: true,
			},
		},
		ownerScoped: map[Capability]bool{
			CapManageOwnBooks: true,
			CapRecordSales:    true,
		},
	}
}

// Grants reports whether the role holds the capability at all
func (p *Policy) Grants(role string, c Capability) bool {
	return p.grants[role][c]
}

// Allows reports whether the principal may exercise c on a resource owned by
// ownerID. An empty ownerID means the owner is not yet known, and only the
// role grant is checked.
func (p *Policy) Allows(pr *Principal, c Capability, ownerID string) bool {
	if pr == nil || !p.Grants(pr.Role, c) {
		return false
	}
	if p.ownerScoped[c] && ownerID != "" {
		return pr.ID == ownerID
	}
	return true
}
