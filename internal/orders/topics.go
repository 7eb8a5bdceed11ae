package orders

const (
	TopicOrderCreated = "shop.order.created"
	TopicOrderStatus  = "shop.order.status"
)

// Partition key = order_id so all events for one order stay ordered.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
