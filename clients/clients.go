package clients

// Client is a registered OAuth2 client. RedirectURI is the authoritative
// callback destination: authorization requests must present exactly this URI,
// and issued codes are always bound to it, never to a caller-supplied value.
type Client struct {
	ClientID    string `gorm:"primaryKey;column:client_id" json:"client_id"`
	Name        string `json:"name"`
	RedirectURI string `gorm:"not null" json:"redirect_uri"`
}

func (Client) TableName() string { return "oauth_clients" }
