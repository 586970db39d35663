package evm

// p2pSwapABI covers the escrow contract surface used by the oracle. The
// state output encodes 0 open, 1 executed, 2 canceled.
const p2pSwapABI = `[
  {"type":"function","name":"getSwap","stateMutability":"view","inputs":[{"name":"swapId","type":"bytes32"}],"outputs":[{"name":"address1","type":"address"},{"name":"token1","type":"address"},{"name":"value1","type":"uint256"},{"name":"token2","type":"address"},{"name":"value2","type":"uint256"},{"name":"state","type":"uint8"},{"name":"address2","type":"address"}]},
  {"type":"function","name":"registerSwap","stateMutability":"nonpayable","inputs":[{"name":"swapId","type":"bytes32"},{"name":"token1","type":"address"},{"name":"value1","type":"uint256"},{"name":"token2","type":"address"},{"name":"value2","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"executeSwap","stateMutability":"nonpayable","inputs":[{"name":"swapId","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"cancelSwap","stateMutability":"nonpayable","inputs":[{"name":"swapId","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]}
]`

const erc20ABI = `[
  {"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
  {"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`
