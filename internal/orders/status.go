package orders

type Status string

// Orders are created placed; later fulfilment states live outside this service.
const StatusPlaced Status = "PLACED"
