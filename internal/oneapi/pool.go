package oneapi

import (
	"encoding/xml"

	"github.com/nebulaops/vnetctl/pkg/errors"
	"github.com/nebulaops/vnetctl/pkg/template"
	"github.com/nebulaops/vnetctl/pkg/vnet"
)

// vnetPool mirrors the VNET_POOL document returned by one.vnpool.info.
type vnetPool struct {
	XMLName  xml.Name     `xml:"VNET_POOL"`
	Networks []vnetRecord `xml:"VNET"`
}

type vnetRecord struct {
	ID       int               `xml:"ID"`
	Name     string            `xml:"NAME"`
	UID      int               `xml:"UID"`
	UName    string            `xml:"UNAME"`
	GID      int               `xml:"GID"`
	GName    string            `xml:"GNAME"`
	Clusters clusterIDs        `xml:"CLUSTERS"`
	Template template.Document `xml:"TEMPLATE"`
}

type clusterIDs struct {
	IDs []int `xml:"ID"`
}

// parsePool decodes a pool listing into network records.
func parsePool(body string) ([]vnet.Network, error) {
	var pool vnetPool
	if err := xml.Unmarshal([]byte(body), &pool); err != nil {
		return nil, errors.WrapParse("xml", "", err)
	}

	networks := make([]vnet.Network, 0, len(pool.Networks))
	for _, rec := range pool.Networks {
		networks = append(networks, vnet.Network{
			ID:         rec.ID,
			Name:       rec.Name,
			OwnerID:    rec.UID,
			OwnerName:  rec.UName,
			GroupID:    rec.GID,
			GroupName:  rec.GName,
			ClusterIDs: rec.Clusters.IDs,
			Template:   rec.Template,
		})
	}
	return networks, nil
}
