package cache

// Cache key names for live dispatch state. Shared by the api and worker
// processes.
const (
	SolutionKey = "dispatch:solution"
	VehiclesKey = "dispatch:vehicles"
	OrdersKey   = "dispatch:orders"
)
