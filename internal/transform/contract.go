package transform

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"combgraph/internal/graph"
	"combgraph/internal/ingest"
)

// ContractValue is the upstream storage-contract record shape described in
// spec §4.7: data size, storage-node account, current consensus count, a
// file map (cid → size), expiry/extension specs, purchaser, contract id,
// compact metadata string, node-set map, power-of, refund, target
// account, and utilized size.
type ContractValue struct {
	ContractID     string           `json:"i"`
	Purchaser      string           `json:"p"`
	StorageAccount string           `json:"b"`
	TargetAccount  string           `json:"t,omitempty"`
	DataSize       int64            `json:"s"`
	UtilizedSize   int64            `json:"u"`
	ConsensusCount int              `json:"c"`
	Df             map[string]int64 `json:"df"`
	Expiry         uint64           `json:"e"`
	Extension      uint64           `json:"x,omitempty"`
	Metadata       string           `json:"m"`
	NodeSet        map[string]int   `json:"nt,omitempty"`
	PowerOf        int              `json:"pow,omitempty"`
	Refund         int64            `json:"r,omitempty"`
}

// transformContract decomposes a contracts/<id> put or del into Account,
// Contract, ContractFile, and Path mutations per spec §4.7 steps 1-8.
func (t *Transformer) transformContract(acc *Accumulator, op ingest.OperationMsg, block BlockInfo) error {
	if len(op.Path) < 2 {
		return fmt.Errorf("transform: contract operation missing id segment in path %v", op.Path)
	}
	contractID := op.Path[1]

	if op.Type == ingest.OpDel {
		acc.Upsert("Contract", contractID, graph.Mutation{"contractId": contractID, "deleted": true})
		return nil
	}

	var cv ContractValue
	if err := json.Unmarshal(op.Data, &cv); err != nil {
		return fmt.Errorf("transform: decode contract %s: %w", contractID, err)
	}
	if cv.ContractID == "" {
		cv.ContractID = contractID
	}

	// Step 1: Accounts for every referenced username (global namespace).
	purchaserUID := acc.Upsert("Account", cv.Purchaser, graph.Mutation{"username": cv.Purchaser})
	storageUID := acc.Upsert("Account", cv.StorageAccount, graph.Mutation{"username": cv.StorageAccount})
	var targetUID string
	if cv.TargetAccount != "" {
		targetUID = acc.Upsert("Account", cv.TargetAccount, graph.Mutation{"username": cv.TargetAccount})
	}
	for node := range cv.NodeSet {
		acc.Upsert("Account", node, graph.Mutation{"username": node})
	}

	// Step 2: the Contract entity itself.
	contractFields := graph.Mutation{
		"contractId":     cv.ContractID,
		"purchaser":      purchaserUID,
		"storageAccount": storageUID,
		"dataSize":       cv.DataSize,
		"utilizedSize":   cv.UtilizedSize,
		"consensusCount": cv.ConsensusCount,
		"expiry":         cv.Expiry,
		"extension":      cv.Extension,
		"powerOf":        cv.PowerOf,
		"refund":         cv.Refund,
		"blockNum":       block.BlockNum,
	}
	if targetUID != "" {
		contractFields["targetAccount"] = targetUID
	}
	contractUID := acc.Upsert("Contract", cv.ContractID, contractFields)

	// Step 4: parse the compact metadata string.
	md, err := ParseCompactMetadata(cv.Metadata)
	if err != nil {
		return fmt.Errorf("transform: contract %s: %w", cv.ContractID, err)
	}

	cids := SortedCIDs(cv.Df)
	if len(cids) != len(md.Records) {
		t.log.WithFields(logrus.Fields{
			"contract": cv.ContractID,
			"cids":     len(cids),
			"records":  len(md.Records),
		}).Warn("transform: compact metadata record count does not match file map size")
	}

	for i, cid := range cids {
		size := cv.Df[cid]
		rec := FileRecord{Name: cid}
		if i < len(md.Records) {
			rec = md.Records[i]
		}

		// Step 3 and step 8: ContractFile keyed by (contractId, cid); not
		// deduplicated across contracts even when the same cid recurs.
		fileIdentity := cv.ContractID + "\x00" + cid
		acc.Upsert("ContractFile", fileIdentity, graph.Mutation{
			"cid":       cid,
			"contract":  contractUID,
			"size":      size,
			"name":      rec.Name,
			"extension": rec.Extension,
			"mime":      rec.MIME,
			"licensed":  rec.Licensed,
			"labeled":   rec.Labeled,
			"thumbnail": rec.Thumbnail,
			"flags":     rec.Flags,
		})

		// Step 7: thumbnails are file entities but not user-visible path
		// nodes, so path creation is suppressed for them.
		if rec.Thumbnail {
			continue
		}

		folderPath := md.FolderPath(rec.FolderIndex)
		pathUID := t.upsertPathChain(acc, folderPath, purchaserUID)
		acc.RecordPathFile(folderPath)

		// Step 6: link file to path via parentPath; step 8: membership is
		// recomputed to the newest block number across sharing contracts.
		acc.UpsertMaxUint64("ContractFile", fileIdentity, "membershipBlockNum", block.BlockNum, graph.Mutation{
			"parentPath": pathUID,
		})
	}

	return nil
}

// upsertPathChain upserts fullPath and every ancestor folder it implies,
// linking each level to its parent via parentPath and to owner via an
// "owner" edge (step 5: "creating ancestors as needed"; step 6: "link
// contract-owner to each Path"). It returns the leaf path's temp id.
func (t *Transformer) upsertPathChain(acc *Accumulator, fullPath, ownerUID string) string {
	trimmed := strings.Trim(fullPath, "/")
	if trimmed == "" {
		return acc.Upsert("Path", "/", graph.Mutation{"fullPath": "/", "owner": ownerUID})
	}

	var built string
	var parentUID string
	for _, seg := range strings.Split(trimmed, "/") {
		if built == "" {
			built = seg
		} else {
			built = built + "/" + seg
		}
		fields := graph.Mutation{"fullPath": built, "owner": ownerUID}
		if parentUID != "" {
			fields["parentPath"] = parentUID
		}
		parentUID = acc.Upsert("Path", built, fields)
	}
	return parentUID
}
