/*
 * Copyright © 2025 OrbitLease, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
 * the License. You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
 * an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
 * specific language governing permissions and limitations under the License.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

package leasefactory

import (
	"context"
	"strconv"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-signer/pkg/eip712"
	"github.com/hyperledger/firefly-signer/pkg/secp256k1"
	"github.com/orbitlease/orbitlease/internal/components"
	"github.com/orbitlease/orbitlease/internal/msgs"
	"github.com/orbitlease/orbitlease/pkg/oltypes"
)

// leaseIntentTypes is the EIP-712 type set both parties sign over. The field
// order here is part of the wire protocol and must never change for a given
// domain version.
var leaseIntentTypes = eip712.TypeSet{
	"LeaseIntent": {
		{Name: "deadline", Type: "uint256"},
		{Name: "assetTypeSchemaHash", Type: "bytes32"},
		{Name: "lease", Type: "Lease"},
	},
	"Lease": {
		{Name: "lessor", Type: "address"},
		{Name: "lessee", Type: "address"},
		{Name: "assetId", Type: "uint256"},
		{Name: "paymentToken", Type: "address"},
		{Name: "rentAmount", Type: "uint256"},
		{Name: "rentPeriod", Type: "uint256"},
		{Name: "securityDeposit", Type: "uint256"},
		{Name: "startTime", Type: "uint256"},
		{Name: "endTime", Type: "uint256"},
		{Name: "legalDocHash", Type: "bytes32"},
		{Name: "termsVersion", Type: "uint256"},
		{Name: "attributeKeys", Type: "bytes32[]"},
		{Name: "attributeValues", Type: "string[]"},
	},
	eip712.EIP712Domain: {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
}

// Digest computes the canonical EIP-712 v4 digest of a lease intent. Every
// field of the intent (and of the embedded lease terms, attribute arrays
// included) is bound into the hash.
func (lf *leaseFactory) Digest(ctx context.Context, intent *components.LeaseIntent) (*oltypes.Bytes32, error) {
	if len(intent.Lease.AttributeKeys) != len(intent.Lease.AttributeValues) {
		return nil, i18n.NewError(ctx, msgs.MsgLeaseAttributeMismatch, len(intent.Lease.AttributeKeys), len(intent.Lease.AttributeValues))
	}
	attributeKeys := make([]interface{}, len(intent.Lease.AttributeKeys))
	for i, key := range intent.Lease.AttributeKeys {
		attributeKeys[i] = key.String()
	}
	attributeValues := make([]interface{}, len(intent.Lease.AttributeValues))
	for i, value := range intent.Lease.AttributeValues {
		attributeValues[i] = value
	}
	tdv4, err := eip712.EncodeTypedDataV4(ctx, &eip712.TypedData{
		Types:       leaseIntentTypes,
		PrimaryType: "LeaseIntent",
		Domain: map[string]interface{}{
			"name":              lf.domainName,
			"version":           lf.domainVersion,
			"chainId":           lf.chainID,
			"verifyingContract": lf.verifyingContract.String(),
		},
		Message: map[string]interface{}{
			"deadline":            strconv.FormatInt(intent.Deadline, 10),
			"assetTypeSchemaHash": intent.AssetTypeSchemaHash.String(),
			"lease": map[string]interface{}{
				"lessor":          intent.Lease.Lessor.String(),
				"lessee":          intent.Lease.Lessee.String(),
				"assetId":         strconv.FormatUint(intent.Lease.AssetID, 10),
				"paymentToken":    intent.Lease.PaymentToken.String(),
				"rentAmount":      intent.Lease.RentAmount.String(),
				"rentPeriod":      strconv.FormatUint(intent.Lease.RentPeriod, 10),
				"securityDeposit": intent.Lease.SecurityDeposit.String(),
				"startTime":       strconv.FormatInt(intent.Lease.StartTime, 10),
				"endTime":         strconv.FormatInt(intent.Lease.EndTime, 10),
				"legalDocHash":    intent.Lease.LegalDocHash.String(),
				"termsVersion":    strconv.FormatUint(intent.Lease.TermsVersion, 10),
				"attributeKeys":   attributeKeys,
				"attributeValues": attributeValues,
			},
		},
	})
	if err != nil {
		return nil, err
	}
	digest := oltypes.Bytes32(tdv4)
	return &digest, nil
}

// VerifySignature computes the intent digest and checks sig against it
func (lf *leaseFactory) VerifySignature(ctx context.Context, intent *components.LeaseIntent, sig oltypes.HexBytes, expected oltypes.EthAddress, party string) error {
	digest, err := lf.Digest(ctx, intent)
	if err != nil {
		return err
	}
	return lf.verifySignature(ctx, digest, sig, expected, party)
}

// verifySignature recovers the signer of a compact 65-byte R/S/V signature over
// the digest, and checks it against the expected party address
func (lf *leaseFactory) verifySignature(ctx context.Context, digest *oltypes.Bytes32, sig oltypes.HexBytes, expected oltypes.EthAddress, party string) error {
	sigData, err := secp256k1.DecodeCompactRSV(ctx, sig)
	if err != nil {
		return i18n.WrapError(ctx, err, msgs.MsgLeaseInvalidSignature, party)
	}
	recovered, err := sigData.RecoverDirect(digest[:], lf.chainID)
	if err != nil {
		return i18n.WrapError(ctx, err, msgs.MsgLeaseInvalidSignature, party)
	}
	recoveredAddr := oltypes.EthAddressFromSigner(*recovered)
	if !recoveredAddr.Equals(&expected) {
		return i18n.NewError(ctx, msgs.MsgLeaseSignatureMismatch, party, expected, recoveredAddr)
	}
	return nil
}
