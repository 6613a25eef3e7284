package appsheet

const DefaultClockInTable = "ClockIn"

type Client struct {
	Transport *Transport
	ClockIns  *TableEndpoint
}

func NewClient(baseURL, appID, accessKey, table string) *Client {
	if table == "" {
		table = DefaultClockInTable
	}
	t := NewTransport(baseURL, accessKey)
	return &Client{
		Transport: t,
		ClockIns:  &TableEndpoint{transport: t, appID: appID, table: table},
	}
}
