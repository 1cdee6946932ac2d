package model

// All lists every persisted entity in dependency order, parents first.
func All() []any {
	return []any{
		&Provider{},
		&Product{},
		&Client{},
		&Technician{},
		&Material{},
		&ClientProductAssignment{},
		&Offer{},
		&Order{},
		&MaintenanceRecord{},
		&MaterialRequirement{},
		&PushSubscription{},
	}
}
