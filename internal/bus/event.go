package bus

import "time"

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// Event kinds. Store kinds share the "store." prefix so a subscriber can
// watch all catalog changes at once.
const (
	KindStatusChanged   = "daemon.status_changed"
	KindCatalogImported = "catalog.imported"

	KindStoreApps      = "store.apps"
	KindStoreShortcuts = "store.shortcuts"
	KindStoreContacts  = "store.contacts"
	KindStoreEvents    = "store.events"
	KindStoreCustom    = "store.custom"
	KindStoreLabels    = "store.labels"
	KindStoreRates     = "store.rates"
)

// StoreKinds lists the kinds published when the catalog is replaced.
var StoreKinds = []string{
	KindStoreApps, KindStoreShortcuts, KindStoreContacts,
	KindStoreEvents, KindStoreCustom, KindStoreLabels,
}
