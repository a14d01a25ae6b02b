package config

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/params"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Environment variable names for the signer and canceller
const (
	EnvKeyID             = "KMS_TX_KEY_ID"
	EnvAWSRegion         = "KMS_TX_AWS_REGION"
	EnvChainID           = "KMS_TX_CHAIN_ID"
	EnvRPCURL            = "KMS_TX_RPC_URL"
	EnvSignTimeout       = "KMS_TX_SIGN_TIMEOUT"
	EnvRPCTimeout        = "KMS_TX_RPC_TIMEOUT"
	EnvGasLimit          = "KMS_TX_GAS_LIMIT"
	EnvFeeBumpPercent    = "KMS_TX_FEE_BUMP_PERCENT"
	EnvMinTipCapWei      = "KMS_TX_MIN_TIP_WEI"
	EnvRequestsPerSecond = "KMS_TX_KMS_RPS"
	EnvVerbose           = "KMS_TX_VERBOSE"
)

const (
	DefaultSignTimeout       = 10 * time.Second
	DefaultRPCTimeout        = 15 * time.Second
	DefaultFeeBumpPercent    = 10
	DefaultRequestsPerSecond = 10.0

	// Intrinsic gas of a plain value transfer with empty calldata.
	DefaultGasLimit = params.TxGas
)

type ChainId uint64

const (
	ChainId_EthereumMainnet ChainId = 1
	ChainId_EthereumHolesky ChainId = 17000
	ChainId_EthereumSepolia ChainId = 11155111
	ChainId_EthereumAnvil   ChainId = 31337
)

type ChainName string

const (
	ChainName_EthereumMainnet ChainName = "mainnet"
	ChainName_EthereumHolesky ChainName = "holesky"
	ChainName_EthereumSepolia ChainName = "sepolia"
	ChainName_EthereumAnvil   ChainName = "devnet"
)

var ChainIdToName = map[ChainId]ChainName{
	ChainId_EthereumMainnet: ChainName_EthereumMainnet,
	ChainId_EthereumHolesky: ChainName_EthereumHolesky,
	ChainId_EthereumSepolia: ChainName_EthereumSepolia,
	ChainId_EthereumAnvil:   ChainName_EthereumAnvil,
}

var ChainNameToId = map[ChainName]ChainId{
	ChainName_EthereumMainnet: ChainId_EthereumMainnet,
	ChainName_EthereumHolesky: ChainId_EthereumHolesky,
	ChainName_EthereumSepolia: ChainId_EthereumSepolia,
	ChainName_EthereumAnvil:   ChainId_EthereumAnvil,
}

// GetChainName returns the well known name of a chain id, or its decimal form for private networks.
func GetChainName(chainId ChainId) ChainName {
	if name, ok := ChainIdToName[chainId]; ok {
		return name
	}
	return ChainName(fmt.Sprintf("chain-%d", chainId))
}

// GetSupportedChainIDsString returns the well known chain IDs as a string for CLI help
func GetSupportedChainIDsString() string {
	return fmt.Sprintf("%d (mainnet), %d (holesky), %d (sepolia), %d (anvil)",
		ChainId_EthereumMainnet, ChainId_EthereumHolesky, ChainId_EthereumSepolia, ChainId_EthereumAnvil)
}

// KMSSignerConfig configures a transaction signer backed by a remote key.
type KMSSignerConfig struct {
	KeyID   string  `json:"keyId" yaml:"keyId"`
	Region  string  `json:"region" yaml:"region"`
	ChainID ChainId `json:"chainId" yaml:"chainId"`

	// SignTimeout bounds the single remote Sign call of a signing attempt.
	SignTimeout time.Duration `json:"signTimeout" yaml:"signTimeout"`

	// GasLimit is applied to transactions that do not carry their own. Zero means DefaultGasLimit.
	GasLimit uint64 `json:"gasLimit" yaml:"gasLimit"`

	// RequestsPerSecond paces calls against the key service.
	RequestsPerSecond float64 `json:"requestsPerSecond" yaml:"requestsPerSecond"`
}

// SetDefaults fills zero values with their defaults.
func (c *KMSSignerConfig) SetDefaults() {
	if c.SignTimeout == 0 {
		c.SignTimeout = DefaultSignTimeout
	}
	if c.GasLimit == 0 {
		c.GasLimit = DefaultGasLimit
	}
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = DefaultRequestsPerSecond
	}
}

func (c *KMSSignerConfig) Validate() error {
	var allErrors field.ErrorList
	if c.KeyID == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("keyId"), "keyId is required"))
	}
	if c.ChainID == 0 {
		allErrors = append(allErrors, field.Required(field.NewPath("chainId"), "chainId is required"))
	}
	if c.SignTimeout <= 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("signTimeout"), c.SignTimeout.String(), "signTimeout must be positive"))
	}
	if c.GasLimit < DefaultGasLimit {
		allErrors = append(allErrors, field.Invalid(field.NewPath("gasLimit"), c.GasLimit, fmt.Sprintf("gasLimit must be at least %d", DefaultGasLimit)))
	}
	if c.RequestsPerSecond <= 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("requestsPerSecond"), c.RequestsPerSecond, "requestsPerSecond must be positive"))
	}
	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

// CancellerConfig configures the node connection and fee policy used for cancellations.
type CancellerConfig struct {
	RpcUrl     string        `json:"rpcUrl" yaml:"rpcUrl"`
	RpcTimeout time.Duration `json:"rpcTimeout" yaml:"rpcTimeout"`

	// FeeBumpPercent is added on top of eth_gasPrice when deriving maxFeePerGas.
	FeeBumpPercent int `json:"feeBumpPercent" yaml:"feeBumpPercent"`

	// MinTipCapWei is a floor for maxPriorityFeePerGas.
	MinTipCapWei *big.Int `json:"minTipCapWei" yaml:"minTipCapWei"`
}

func (c *CancellerConfig) SetDefaults() {
	if c.RpcTimeout == 0 {
		c.RpcTimeout = DefaultRPCTimeout
	}
	if c.FeeBumpPercent == 0 {
		c.FeeBumpPercent = DefaultFeeBumpPercent
	}
	if c.MinTipCapWei == nil {
		c.MinTipCapWei = big.NewInt(0)
	}
}

func (c *CancellerConfig) Validate() error {
	var allErrors field.ErrorList
	if c.RpcUrl == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("rpcUrl"), "rpcUrl is required"))
	}
	if c.RpcTimeout <= 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("rpcTimeout"), c.RpcTimeout.String(), "rpcTimeout must be positive"))
	}
	if c.FeeBumpPercent < 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("feeBumpPercent"), c.FeeBumpPercent, "feeBumpPercent must not be negative"))
	}
	if c.MinTipCapWei == nil || c.MinTipCapWei.Sign() < 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("minTipCapWei"), fmt.Sprint(c.MinTipCapWei), "minTipCapWei must be a non-negative integer"))
	}
	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}
