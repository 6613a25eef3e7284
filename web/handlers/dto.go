package handlers

type ClockInRequest struct {
	WorkerID string `json:"workerId" form:"workerId" binding:"required,max=64"`
	Notes    string `json:"notes" form:"notes" binding:"max=1024"`
	TaskID   string `json:"taskId" form:"taskId" binding:"max=64"`
	DeviceID string `json:"deviceId" form:"deviceId" binding:"max=64"`
}

type HistoryQuery struct {
	Days int `form:"days" binding:"omitempty,min=1,max=90"`
}

type ExecQuery struct {
	Action   string `form:"action" binding:"omitempty,oneof=clockin report"`
	WorkerID string `form:"workerId"`
	Notes    string `form:"notes"`
	TaskID   string `form:"taskId"`
	Days     int    `form:"days" binding:"omitempty,min=1,max=90"`
}
